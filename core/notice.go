package core

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient notification shown once on the next rendered page.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func SuccessNotice(msg string) Notice { return Notice{Level: NoticeSuccess, Message: msg} }

func ErrorNotice(msg string) Notice { return Notice{Level: NoticeError, Message: msg} }
