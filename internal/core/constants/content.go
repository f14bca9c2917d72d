package constants

const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain; charset=utf-8"
	ContentTypeHeader = "Content-Type"

	HeaderContentLength    = "Content-Length"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderConnection       = "Connection"
	HeaderAccept           = "Accept"

	HTTPVersion = "HTTP/1.1"

	// HeaderTerminator separates the request head from the body
	HeaderTerminator = "\r\n\r\n"
	CRLF             = "\r\n"

	// ChunkTerminator is the zero-length frame closing a chunked response
	ChunkTerminator = "0\r\n\r\n"
)
