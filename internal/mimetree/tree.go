// Package mimetree reads a MIME message into an explicit tree of parts that
// can be walked in document order.
package mimetree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// defaultContentType applies to parts without a usable Content-Type header (RFC 2045 section 5.2)
const defaultContentType = "text/plain"

const contentTypeMessage = "message/rfc822"

type Part struct {
	ContentType string // Lower-cased media type without parameters
	Disposition string // Empty when the part has no Content-Disposition
	Filename    string // Decoded filename from Content-Disposition, or the Content-Type name parameter
	Body        []byte // Decoded payload, only set on leaf parts
	// DecodeErr is set when Body could not be decoded from its
	// content-transfer-encoding. Body then holds whatever was read before the
	// failure.
	DecodeErr error
	Children  []*Part
}

// Parse reads a complete message. Attached messages (message/rfc822) are
// parsed as well and their root becomes the single child of the attaching
// part.
func Parse(r io.Reader) (*Part, error) {
	entity, err := message.Read(r)
	if err != nil && !isBodyError(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return newPart(entity, err)
}

// Walk calls fn for p and then for every descendant in pre-order. Walking
// stops at the first error returned by fn.
func (p *Part) Walk(fn func(part *Part) error) error {
	if err := fn(p); err != nil {
		return err
	}
	for _, child := range p.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of parts in the tree rooted at p.
func (p *Part) Len() int {
	n := 0
	_ = p.Walk(func(*Part) error {
		n++
		return nil
	})
	return n
}

func newPart(entity *message.Entity, entityErr error) (*Part, error) {
	part := &Part{
		ContentType: contentType(&entity.Header),
		Disposition: disposition(&entity.Header),
		Filename:    filename(entity.Header),
	}
	if message.IsUnknownEncoding(entityErr) {
		part.DecodeErr = entityErr
	}

	if mr := entity.MultipartReader(); mr != nil {
		defer mr.Close()
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !isBodyError(err) {
				return nil, fmt.Errorf("failed to read part %d of %s: %w", len(part.Children)+1, part.ContentType, err)
			}
			childPart, err := newPart(child, err)
			if err != nil {
				return nil, err
			}
			part.Children = append(part.Children, childPart)
		}
		return part, nil
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil && part.DecodeErr == nil {
		part.DecodeErr = err
	}

	if part.ContentType == contentTypeMessage && part.DecodeErr == nil {
		attached, err := Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to read attached message: %w", err)
		}
		part.Children = []*Part{attached}
		return part, nil
	}

	part.Body = body
	return part, nil
}

// isBodyError reports errors that only affect how a body is decoded. The
// entity is still usable when one of these is returned.
func isBodyError(err error) bool {
	return message.IsUnknownEncoding(err) || message.IsUnknownCharset(err)
}

func contentType(h *message.Header) string {
	t, _, err := h.ContentType()
	if err != nil || !strings.Contains(t, "/") {
		return defaultContentType
	}
	return t
}

func disposition(h *message.Header) string {
	d, _, err := h.ContentDisposition()
	if err != nil {
		return ""
	}
	return d
}

func filename(h message.Header) string {
	ah := mail.AttachmentHeader{Header: h}
	name, _ := ah.Filename()
	return name
}
