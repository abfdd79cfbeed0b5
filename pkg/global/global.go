package global

var (
	Version        = "0.0.1"
	BuildTime      = "none"
	Commit         = ""
	Verbose        = false
	ConfigFilename = "torchlink.yaml"

	// LibtorchDownloadHost serves the prebuilt libtorch archives.
	LibtorchDownloadHost = "https://download.pytorch.org"
)
