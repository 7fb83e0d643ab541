package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"santasleigh/internal/framing"
	"santasleigh/internal/uploader"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// prefix/hostname=<host>/date=<YYYYMMDD>/<root>-<YYYYMMDDTHHMMSSZ>-<batch id>.json[.ext]
func (sink *Sink) objectKey(payload *framing.Payload) string {
	created := payload.Created.UTC()
	name := fmt.Sprintf("%s-%s-%s.json%s",
		sink.cfg.NameRoot, created.Format("20060102T150405Z"), payload.BatchID, payload.Encoding.Extension())

	parts := make([]string, 0, 4)
	if sink.cfg.Prefix != "" {
		parts = append(parts, sink.cfg.Prefix)
	}
	parts = append(parts,
		"hostname="+sink.cfg.Hostname,
		"date="+created.Format("20060102"),
		name,
	)
	return path.Join(parts...)
}

// Puts the payload as one object. The batch ID in the key makes a repeated upload overwrite, not duplicate.
func (sink *Sink) Deliver(ctx context.Context, payload *framing.Payload) (err error) {
	key := sink.objectKey(payload)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(sink.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload.Body),
		ContentLength: aws.Int64(int64(len(payload.Body))),
		ContentType:   aws.String("application/x-ndjson"),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata: map[string]string{
			"batch-id":     payload.BatchID.String(),
			"batch-seq":    strconv.FormatUint(payload.Seq, 10),
			"batch-events": strconv.Itoa(len(payload.Events)),
			"blake3":       payload.Digest,
		},
	}

	_, err = sink.uploader.Upload(ctx, input)
	if err != nil {
		err = fmt.Errorf("put object %s: %w: %w", key, classify(err), err)
	}
	return
}

func classify(err error) (class error) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch {
		case authCodes[apiErr.ErrorCode()]:
			return uploader.AuthFailed
		case rejectCodes[apiErr.ErrorCode()]:
			return uploader.Rejected
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return uploader.ClassifyHTTPStatus(respErr.HTTPStatusCode())
	}
	return uploader.Transient
}
