package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// MediaType is a declared document content type
type MediaType string

const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeDOCX MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText MediaType = "text/plain"
	MediaTypeJPEG MediaType = "image/jpeg"
	MediaTypePNG  MediaType = "image/png"
	MediaTypeSVG  MediaType = "image/svg+xml"
)

var mediaTypeAliases = map[string]MediaType{
	"image/jpg":         MediaTypeJPEG,
	"image/pjpeg":       MediaTypeJPEG,
	"image/svg":         MediaTypeSVG,
	"application/x-pdf": MediaTypePDF,
}

var extensionMediaTypes = map[string]MediaType{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeText,
	".text": MediaTypeText,
	".md":   MediaTypeText,
	".jpg":  MediaTypeJPEG,
	".jpeg": MediaTypeJPEG,
	".png":  MediaTypePNG,
	".svg":  MediaTypeSVG,
}

// ParseMediaType normalises a Content-Type style value: parameters are
// dropped, case is folded and common aliases are mapped to their canonical
// form. Unknown types are returned normalised but otherwise untouched.
func ParseMediaType(s string) MediaType {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		s = mt
	} else if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := mediaTypeAliases[s]; ok {
		return alias
	}
	return MediaType(s)
}

// MediaTypeFromFilename infers a media type from the file extension.
func MediaTypeFromFilename(name string) (MediaType, bool) {
	mt, ok := extensionMediaTypes[strings.ToLower(filepath.Ext(name))]
	return mt, ok
}

// SourceDocument is an uploaded file. It is immutable once constructed.
type SourceDocument struct {
	Name      string
	MediaType MediaType
	data      []byte
}

// NewSourceDocument copies data into a new document
func NewSourceDocument(name string, mediaType MediaType, data []byte) SourceDocument {
	buf := make([]byte, len(data))
	copy(buf, data)
	return SourceDocument{
		Name:      name,
		MediaType: mediaType,
		data:      buf,
	}
}

// Bytes returns a copy of the document contents
func (d SourceDocument) Bytes() []byte {
	buf := make([]byte, len(d.data))
	copy(buf, d.data)
	return buf
}

// Size returns the document size in bytes
func (d SourceDocument) Size() int {
	return len(d.data)
}

// Digest returns the hex encoded SHA-256 of the contents
func (d SourceDocument) Digest() string {
	sum := sha256.Sum256(d.data)
	return hex.EncodeToString(sum[:])
}

// Strategy is the extraction strategy selected for a media type
type Strategy int

const (
	StrategyDirectPDF Strategy = iota + 1
	StrategyDirectDOCX
	StrategyDirectText
	StrategyOCROnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirectPDF:
		return "DIRECT_PDF"
	case StrategyDirectDOCX:
		return "DIRECT_DOCX"
	case StrategyDirectText:
		return "DIRECT_TEXT"
	case StrategyOCROnly:
		return "OCR_ONLY"
	default:
		return "UNKNOWN"
	}
}

// IsDirect reports whether the strategy has a direct extractor
func (s Strategy) IsDirect() bool {
	return s == StrategyDirectPDF || s == StrategyDirectDOCX || s == StrategyDirectText
}

// HasOCRFallback reports whether a failed or unreadable direct extraction
// can be retried by rasterizing the document
func (s Strategy) HasOCRFallback() bool {
	return s == StrategyDirectPDF
}

// PageImage represents a single rasterized page
type PageImage struct {
	Index  int // 0-based, matches source page order
	Image  image.Image
	Width  int
	Height int
}

// NewPageImage wraps img with its index and bounds
func NewPageImage(index int, img image.Image) PageImage {
	b := img.Bounds()
	return PageImage{
		Index:  index,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}

// ExtractionJob is one unit of OCR work
type ExtractionJob struct {
	Page      PageImage
	Languages []string
}

// Result is the outcome of extracting one document
type Result struct {
	Text      string        `json:"text"`
	Strategy  string        `json:"strategy"`
	UsedOCR   bool          `json:"used_ocr"`
	Pages     int           `json:"pages"`
	Duration  time.Duration `json:"duration"`
	FromCache bool          `json:"-"`
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart        EventType = "start"
	EventStrategy     EventType = "strategy"
	EventFallback     EventType = "fallback"
	EventPageComplete EventType = "page_complete"
	EventError        EventType = "error"
	EventComplete     EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
