package constants

const (
	DefaultModelPath  string = "/leafcheck/model"
	DefaultListenAddr string = ":8080"

	ImageFormField string = "file"
	MaxUploadSize  int64  = 8 << 20
)
