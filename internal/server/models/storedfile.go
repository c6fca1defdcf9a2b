package models

// StoredFile describes one sealed warranty upload. Name is the logical,
// store-relative name; it never contains a path separator.
type StoredFile struct {
	Name string
	Size int64
}
