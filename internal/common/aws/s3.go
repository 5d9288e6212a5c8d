package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3PresignClient returns a presigner for the uploads bucket. Path style
// addressing is used when a custom endpoint is configured.
func NewS3PresignClient(cfg aws.Config, customEndpoint bool) *s3.PresignClient {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if customEndpoint {
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client)
}
