package models

import "time"

// LinkPreviewDraft is the unsent preview attached to a message before it is posted.
type LinkPreviewDraft struct {
	URL           string     `json:"url"`
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	ImageData     []byte     `json:"imageData,omitempty"`
	ImageMimeType *string    `json:"imageMimeType,omitempty"`
}

// IsValid reports whether the draft has something to show: a title or an image.
func (d *LinkPreviewDraft) IsValid() bool {
	if d == nil {
		return false
	}
	if d.Title != nil && *d.Title != "" {
		return true
	}
	return len(d.ImageData) > 0 && d.ImageMimeType != nil && *d.ImageMimeType != ""
}

// SetThumbnail attaches both image fields at once, or clears both when thumb is nil.
func (d *LinkPreviewDraft) SetThumbnail(thumb *Thumbnail) {
	if thumb == nil || len(thumb.Data) == 0 || thumb.MimeType == "" {
		d.ImageData = nil
		d.ImageMimeType = nil
		return
	}
	mimeType := thumb.MimeType
	d.ImageData = thumb.Data
	d.ImageMimeType = &mimeType
}

type Thumbnail struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType"`
}
