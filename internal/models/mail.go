package models

// MailEvent is the payload published to the mail topic when a
// verification code is issued.
type MailEvent struct {
	Email string `json:"email"`
	Code  int    `json:"code"`
	Type  string `json:"type"`
}

const (
	MailTypeRegister = "register"
	MailTypeReset    = "reset"
)
