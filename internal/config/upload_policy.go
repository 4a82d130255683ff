package config

import (
	"errors"
	"strings"
)

// defaultUploadMaxSize caps uploads at 10MB unless overridden.
const defaultUploadMaxSize = 10 * 1024 * 1024

// Upload rejection reasons.
var (
	// ErrUploadTooLarge indicates the upload exceeds the size ceiling.
	ErrUploadTooLarge = errors.New("file size exceeds limit")
	// ErrUploadMimeRejected indicates the MIME type is not allowed.
	ErrUploadMimeRejected = errors.New("file type not allowed")
	// ErrUploadExtRejected indicates the file extension is not allowed.
	ErrUploadExtRejected = errors.New("file extension not allowed")
)

// UploadPolicy restricts uploads by size, MIME type, and extension.
// Empty lists mean no restriction.
type UploadPolicy struct {
	MaxSize       int64    `json:"maxSize"`
	MimeWhitelist []string `json:"mimeTypeWhitelist"`
	MimeBlacklist []string `json:"mimeTypeBlacklist"`
	ExtWhitelist  []string `json:"extWhitelist"`
	ExtBlacklist  []string `json:"extBlacklist"`
}

// DefaultUploadPolicy returns the unrestricted 10MB default policy.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize:       defaultUploadMaxSize,
		MimeWhitelist: []string{},
		MimeBlacklist: []string{},
		ExtWhitelist:  []string{},
		ExtBlacklist:  []string{},
	}
}

// Check validates an upload against the policy. The extension may be
// empty, in which case extension rules are skipped.
func (p UploadPolicy) Check(size int64, mimeType, ext string) error {
	if p.MaxSize > 0 && size > p.MaxSize {
		return ErrUploadTooLarge
	}
	if len(p.MimeWhitelist) > 0 && !containsFold(p.MimeWhitelist, mimeType) {
		return ErrUploadMimeRejected
	}
	if len(p.MimeBlacklist) > 0 && containsFold(p.MimeBlacklist, mimeType) {
		return ErrUploadMimeRejected
	}
	if ext != "" {
		if len(p.ExtWhitelist) > 0 && !containsFold(p.ExtWhitelist, ext) {
			return ErrUploadExtRejected
		}
		if len(p.ExtBlacklist) > 0 && containsFold(p.ExtBlacklist, ext) {
			return ErrUploadExtRejected
		}
	}
	return nil
}

// containsFold reports whether list contains value case-insensitively.
func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}
