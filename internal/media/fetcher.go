package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Fetcher retrieves one media object's byte stream by its source string.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (io.ReadCloser, error)
}

// SpacesFetcher pulls objects from the platform's Spaces bucket. Sources
// may be bare object keys or full CDN URLs; both resolve to the same key.
type SpacesFetcher struct {
	client *s3.S3
	bucket string
}

func NewSpacesFetcher(endpoint, region, bucket, accessKey, secretKey string) (*SpacesFetcher, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesFetcher{client: s3.New(sess), bucket: bucket}, nil
}

func (sf *SpacesFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	key := objectKey(source)
	out, err := sf.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sf.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q from Spaces: %w", key, err)
	}
	return out.Body, nil
}

// objectKey strips a CDN prefix down to the bucket key.
func objectKey(source string) string {
	if strings.Contains(source, "://") {
		if u, err := url.Parse(source); err == nil {
			return strings.TrimPrefix(u.Path, "/")
		}
	}
	return strings.TrimPrefix(source, "/")
}

// HTTPFetcher pulls media from plain web URLs.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

func (hf *HTTPFetcher) Fetch(ctx context.Context, source string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hf.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %q: unexpected status %s", source, resp.Status)
	}
	return resp.Body, nil
}
