package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
	MimeSVG   = "image/svg+xml"
)

var AllowedIconExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".webp"}
