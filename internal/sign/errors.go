package sign

import "errors"

// Sentinel errors for every user-facing failure. Each maps to a single
// status message via StatusMessage; none of them is fatal to the session.
var (
	ErrUnreadableDocument       = errors.New("document could not be read as a PDF")
	ErrPageIndexOutOfRange      = errors.New("page index out of range")
	ErrUndecodableImage         = errors.New("image could not be decoded")
	ErrUnsupportedAssetType     = errors.New("unsupported signature asset type")
	ErrNoSelection              = errors.New("no committed selection")
	ErrNoDocument               = errors.New("no document loaded")
	ErrNoImageAsset             = errors.New("no image asset loaded")
	ErrNoCertificateContainer   = errors.New("no certificate container loaded")
	ErrWrongPasswordOrMalformed = errors.New("wrong password or unsupported container format")
	ErrEmbeddingFailed          = errors.New("embedding the signature image failed")

	// ErrSuperseded marks the completion of an operation that was
	// overtaken by a newer document or asset load. Callers drop the
	// result silently; it is never shown to the user.
	ErrSuperseded = errors.New("superseded by a newer operation")
)

// StatusMessage maps an error to the human-readable status text shown to
// the user. Unknown errors pass through their own message.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrUnreadableDocument):
		return "Could not read the file as a PDF document."
	case errors.Is(err, ErrPageIndexOutOfRange):
		return "The requested page does not exist in this document."
	case errors.Is(err, ErrUndecodableImage):
		return "The signature image could not be decoded."
	case errors.Is(err, ErrUnsupportedAssetType):
		return "Unsupported file type. Use PNG, JPEG, GIF or a .p12/.pfx container."
	case errors.Is(err, ErrNoSelection):
		return "Select a signature area on the page first."
	case errors.Is(err, ErrNoDocument):
		return "Load a PDF document first."
	case errors.Is(err, ErrNoImageAsset):
		return "Load a signature image first. A certificate container cannot be drawn."
	case errors.Is(err, ErrNoCertificateContainer):
		return "Load a .p12/.pfx certificate container first."
	case errors.Is(err, ErrWrongPasswordOrMalformed):
		return "Wrong password or unsupported format."
	case errors.Is(err, ErrEmbeddingFailed):
		return "Could not embed the signature image into the document."
	default:
		return err.Error()
	}
}
