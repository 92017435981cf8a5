package queue

// TaskStatus is the closed set of upload task states.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusUploading TaskStatus = "uploading"
	StatusSuccess   TaskStatus = "success"
	StatusError     TaskStatus = "error"
)

// Task is one queued upload. Status moves pending -> uploading ->
// {success, error}; error -> pending only through an explicit Retry.
type Task struct {
	ID           string     `json:"id"`
	SourcePath   string     `json:"sourcePath"`
	Filename     string     `json:"filename"`
	SizeBytes    int64      `json:"sizeBytes"`
	IsDirectory  bool       `json:"isDirectory"`
	FileCount    int        `json:"fileCount,omitempty"`
	ServerID     string     `json:"serverId"`
	PathKey      string     `json:"pathKey"`
	Extract      bool       `json:"extract"`
	Status       TaskStatus `json:"status"`
	Progress     float64    `json:"progressPercent"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// ProgressEvent is pushed to subscribers while a task is uploading.
type ProgressEvent struct {
	TaskID   string  `json:"taskId"`
	Filename string  `json:"filename"`
	Percent  float64 `json:"percent"`
}
