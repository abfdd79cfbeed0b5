package download

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/torchstack/torchlink/pkg/errors"
)

// fetch opens the archive at rawURL for reading. When mirror is set
// the canonical download host is swapped out: an http(s) mirror keeps
// the URL path, an s3:// mirror maps the path to an object key.
// Returns the body and the content length, -1 when unknown.
func fetch(ctx context.Context, rawURL string, mirror string) (io.ReadCloser, int64, error) {
	switch {
	case strings.HasPrefix(mirror, "s3://"):
		return fetchS3(ctx, rawURL, mirror)
	case mirror != "":
		rewritten, err := rewriteURL(rawURL, mirror)
		if err != nil {
			return nil, 0, err
		}
		return fetchHTTP(ctx, rewritten)
	default:
		return fetchHTTP(ctx, rawURL)
	}
}

func fetchHTTP(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, errors.Network("Failed to create download request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, errors.Network("Failed to download "+rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, errors.Networkf("Download of %s returned status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

func rewriteURL(rawURL string, mirror string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Network("Failed to parse download URL", err)
	}
	// keep the %2B version separator encoded as the host serves it
	return strings.TrimSuffix(mirror, "/") + parsed.EscapedPath(), nil
}

func fetchS3(ctx context.Context, rawURL string, mirror string) (io.ReadCloser, int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, errors.Network("Failed to parse download URL", err)
	}
	bucket, prefix, found := strings.Cut(strings.TrimPrefix(mirror, "s3://"), "/")
	if !found {
		prefix = ""
	}
	if bucket == "" {
		return nil, 0, errors.Configf("Invalid S3 mirror %q, expected s3://bucket[/prefix]", mirror)
	}
	key := strings.TrimPrefix(path.Join(prefix, parsed.Path), "/")

	resp, err := newS3Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, errors.Network("Failed to fetch s3://"+bucket+"/"+key, err)
	}
	length := int64(-1)
	if resp.ContentLength != nil {
		length = *resp.ContentLength
	}
	return resp.Body, length, nil
}

func newS3Client() *s3.Client {
	cfg := aws.NewConfig()
	cfg.Region = "auto"
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Region = region
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		cfg.BaseEndpoint = &endpoint
	}
	cfg.Credentials = credentials.StaticCredentialsProvider{
		Value: aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		},
	}
	return s3.NewFromConfig(*cfg)
}
