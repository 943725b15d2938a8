package server

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/translator"

	"github.com/gin-gonic/gin"
)

type gzipBody struct {
	io.Reader
	gz   *gzip.Reader
	body io.Closer
}

func (b *gzipBody) Close() error {
	gzErr := b.gz.Close()
	if err := b.body.Close(); err != nil {
		return err
	}
	return gzErr
}

// GzipRequestDecompress transparently inflates request bodies sent with
// Content-Encoding: gzip.
func GzipRequestDecompress(tr *translator.Translator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Content-Encoding")), "gzip") {
			ctx.Next()
			return
		}
		gz, err := gzip.NewReader(ctx.Request.Body)
		if err != nil {
			_ = ctx.Error(errors.ErrInvalidGzipRequest)
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": tr.Message(langFrom(ctx), "invalidGzipRequest")})
			return
		}
		ctx.Request.Body = &gzipBody{Reader: gz, gz: gz, body: ctx.Request.Body}
		ctx.Request.Header.Del("Content-Encoding")
		ctx.Request.Header.Del("Content-Length")
		ctx.Request.ContentLength = -1
		ctx.Next()
	}
}

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

var uncompressedStatuses = map[int]bool{
	http.StatusNoContent:         true,
	http.StatusNotModified:       true,
	http.StatusPartialContent:    true,
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

var compressibleTypes = []string{
	"application/json",
	"application/xml",
	"application/javascript",
	"text/html",
	"text/css",
	"text/plain",
	"text/xml",
	"text/javascript",
}

// gzipWriter buffers the body until minSize bytes are known, then decides
// once whether to compress the rest of the response.
type gzipWriter struct {
	gin.ResponseWriter
	gz      *gzip.Writer
	buf     bytes.Buffer
	minSize int
	status  int
	decided bool
}

func (w *gzipWriter) WriteHeader(code int) {
	w.status = code
}

func (w *gzipWriter) WriteHeaderNow() {
	if !w.decided {
		w.decide(false)
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	if w.decided {
		if w.gz != nil {
			n, err := w.gz.Write(data)
			if err != nil {
				return n, errors.ErrGzipCompressionFailed
			}
			return n, nil
		}
		return w.ResponseWriter.Write(data)
	}

	w.buf.Write(data)
	if w.buf.Len() >= w.minSize {
		if err := w.decide(true); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) decide(large bool) error {
	w.decided = true
	if large && w.compressible() {
		header := w.ResponseWriter.Header()
		header.Del("Content-Length")
		header.Set("Content-Encoding", "gzip")
		gz := gzipWriters.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.gz = gz
	}
	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}
	if w.buf.Len() == 0 {
		return nil
	}
	pending := w.buf.Bytes()
	w.buf.Reset()
	var err error
	if w.gz != nil {
		_, err = w.gz.Write(pending)
	} else {
		_, err = w.ResponseWriter.Write(pending)
	}
	if err != nil {
		return errors.ErrGzipCompressionFailed
	}
	return nil
}

func (w *gzipWriter) compressible() bool {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	if uncompressedStatuses[status] {
		return false
	}
	header := w.ResponseWriter.Header()
	if header.Get("Content-Encoding") != "" {
		return false
	}
	ct := strings.ToLower(header.Get("Content-Type"))
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func (w *gzipWriter) finish() error {
	if !w.decided {
		if err := w.decide(false); err != nil {
			return err
		}
	}
	if w.gz == nil {
		return nil
	}
	err := w.gz.Close()
	gzipWriters.Put(w.gz)
	w.gz = nil
	return err
}

func (w *gzipWriter) Flush() {
	if !w.decided {
		_ = w.decide(false)
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// GzipResponseCompress compresses responses of at least minSize bytes for
// clients that accept gzip.
func GzipResponseCompress(minSize int) gin.HandlerFunc {
	if minSize <= 0 {
		minSize = defaultGzipMinSize
	}
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead ||
			!strings.Contains(strings.ToLower(ctx.GetHeader("Accept-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		header := ctx.Writer.Header()
		if vary := header.Get("Vary"); vary == "" {
			header.Set("Vary", "Accept-Encoding")
		} else if !strings.Contains(vary, "Accept-Encoding") {
			header.Set("Vary", vary+", Accept-Encoding")
		}

		original := ctx.Writer
		w := &gzipWriter{ResponseWriter: original, minSize: minSize}
		ctx.Writer = w
		defer func() { ctx.Writer = original }()

		ctx.Next()

		if err := w.finish(); err != nil {
			_ = ctx.Error(err)
		}
	}
}
