package httpserver

const (
	ErrBadForm          = "bad form"
	ErrRender           = "render error"
	ErrNotReady         = "not ready"
	ErrMethodNotAllowed = "method not allowed"
)
