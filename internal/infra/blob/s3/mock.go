package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a *Store whose client talks to an in-memory fake
// transport instead of the network. Only the S3 calls the Store methods issue
// are implemented: HeadObject, GetObject, PutObject, DeleteObject and
// ListObjectsV2.
func NewMockForTests() *Store {
	rt := &fakeS3Transport{objects: make(map[string]fakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret-example", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
	})
	return &Store{client: client, bucket: "evidence-fixture", presign: s3.NewPresignClient(client)}
}

type fakeS3Transport struct {
	objects  map[string]fakeObject
	pageSize int // when >0, list responses are paginated
}

type fakeObject struct {
	payload     []byte
	contentType string
}

func (f *fakeS3Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Path-style addressing: /<bucket>/<key...>.
	key := ""
	if parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2); len(parts) == 2 {
		key = parts[1]
	}
	switch {
	case req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2"):
		return f.list(req.URL.Query().Get("prefix"), req.URL.Query().Get("continuation-token")), nil
	case req.Method == http.MethodHead:
		return f.head(key), nil
	case req.Method == http.MethodGet:
		return f.get(key), nil
	case req.Method == http.MethodPut:
		return f.put(key, req), nil
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		return emptyResponse(http.StatusNoContent, nil), nil
	}
	return emptyResponse(http.StatusNotImplemented, nil), nil
}

func (f *fakeS3Transport) list(prefix, token string) *http.Response {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := len(keys)
	next := ""
	if f.pageSize > 0 && end-start > f.pageSize {
		end = start + f.pageSize
		next = strconv.Itoa(end)
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?><ListBucketResult>")
	fmt.Fprintf(&b, "<IsTruncated>%t</IsTruncated>", next != "")
	if next != "" {
		fmt.Fprintf(&b, "<NextContinuationToken>%s</NextContinuationToken>", next)
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2025-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].payload))
	}
	b.WriteString("</ListBucketResult>")
	resp := emptyResponse(http.StatusOK, nil)
	resp.Body = io.NopCloser(strings.NewReader(b.String()))
	resp.Header.Set("Content-Type", "application/xml")
	return resp
}

func (f *fakeS3Transport) head(key string) *http.Response {
	obj, ok := f.objects[key]
	if !ok {
		return emptyResponse(http.StatusNotFound, nil)
	}
	return emptyResponse(http.StatusOK, http.Header{
		"Content-Length": {strconv.Itoa(len(obj.payload))},
		"Content-Type":   {obj.contentType},
		"ETag":           {"\"fixture-etag\""},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
	})
}

func (f *fakeS3Transport) get(key string) *http.Response {
	obj, ok := f.objects[key]
	if !ok {
		return emptyResponse(http.StatusNotFound, nil)
	}
	resp := emptyResponse(http.StatusOK, http.Header{
		"Content-Length": {strconv.Itoa(len(obj.payload))},
		"Content-Type":   {obj.contentType},
		"ETag":           {"\"fixture-etag\""},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
	})
	resp.Body = io.NopCloser(bytes.NewReader(obj.payload))
	return resp
}

func (f *fakeS3Transport) put(key string, req *http.Request) *http.Response {
	body, _ := io.ReadAll(req.Body)
	// Non-seekable readers arrive aws-chunked.
	if decoded, ok := decodeAWSChunked(body); ok {
		body = decoded
	}
	f.objects[key] = fakeObject{payload: body, contentType: req.Header.Get("Content-Type")}
	return emptyResponse(http.StatusOK, http.Header{"ETag": {"\"fixture-etag\""}})
}

func emptyResponse(status int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: header}
}

// decodeAWSChunked unwraps a single-chunk aws-chunked payload of the form
// <hex size>\r\n<body>\r\n0\r\n....
func decodeAWSChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil {
		return nil, false
	}
	body := parts[1]
	if int64(len(body)) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(body), true
}
