package widget

// StatusKind tags a status message.
type StatusKind string

const (
	StatusNone       StatusKind = "none"
	StatusProcessing StatusKind = "processing"
	StatusSuccess    StatusKind = "success"
	StatusError      StatusKind = "error"
)

// User-facing status messages.
const (
	MessageInvalidFileType = "Please choose an image file."
	MessageProcessing      = "Processing your image with AI..."
	MessageSuccess         = "Success! Your upscaled image is ready."
	MessageFailed          = "Failed to process image."
)

// Status is the transient message shown after the last transition.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

// SelectedFile is the image the user picked.
type SelectedFile struct {
	Name     string
	Size     int64
	MIMEType string
	Data     []byte
}

// Result is the binary payload returned by the processing endpoint.
type Result struct {
	Data        []byte
	ContentType string
}

// State is one of Empty, FileSelected, Processing or ResultReady.
type State interface {
	Name() string
	isState()
}

// Empty means no file is selected.
type Empty struct{}

// FileSelected holds a selected file that has no result yet.
type FileSelected struct {
	File    SelectedFile
	Preview PreviewHandle
	serial  uint64
}

// Processing means the selected file is being uploaded and upscaled.
type Processing struct {
	File    SelectedFile
	Preview PreviewHandle
	serial  uint64
}

// ResultReady holds a selected file together with its upscaled result.
type ResultReady struct {
	File          SelectedFile
	Preview       PreviewHandle
	Result        Result
	ResultPreview PreviewHandle
	serial        uint64
}

func (Empty) Name() string        { return "empty" }
func (FileSelected) Name() string { return "file_selected" }
func (Processing) Name() string   { return "processing" }
func (ResultReady) Name() string  { return "result_ready" }

func (Empty) isState()        {}
func (FileSelected) isState() {}
func (Processing) isState()   {}
func (ResultReady) isState()  {}

// selection returns the selected file of s, if any.
func selection(s State) (SelectedFile, PreviewHandle, uint64, bool) {
	switch st := s.(type) {
	case FileSelected:
		return st.File, st.Preview, st.serial, true
	case Processing:
		return st.File, st.Preview, st.serial, true
	case ResultReady:
		return st.File, st.Preview, st.serial, true
	default:
		return SelectedFile{}, "", 0, false
	}
}
