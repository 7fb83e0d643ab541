package s3

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
)

type Config struct {
	Region       string
	Bucket       string
	Prefix       string // key prefix, slashes trimmed
	Endpoint     string // custom S3-compatible endpoint
	UsePathStyle bool
	Profile      string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Hostname     string
	NameRoot     string // object name stem, normally the source file name without extension
}

// S3 (or compatible) object storage, one object per batch
type Sink struct {
	Namespace []string
	cfg       Config
	uploader  *manager.Uploader
}

// API error codes meaning the credentials were refused
var authCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
	"TokenRefreshRequired":  true,
}

// API error codes that no retry can fix
var rejectCodes = map[string]bool{
	"NoSuchBucket":      true,
	"InvalidBucketName": true,
	"InvalidArgument":   true,
	"EntityTooLarge":    true,
	"KeyTooLongError":   true,
}
