package storage

import (
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ExtraArgs are optional per-upload request parameters. The With* setters
// accept a nil receiver, mutate and return the same value so calls chain.
type ExtraArgs struct {
	ACL              types.ObjectCannedACL
	Metadata         map[string]string
	GrantRead        string
	GrantFullControl string
	ContentType      string
}

// WithPublicRead sets the canned ACL to public-read.
func (e *ExtraArgs) WithPublicRead() *ExtraArgs {
	if e == nil {
		e = &ExtraArgs{}
	}
	e.ACL = types.ObjectCannedACLPublicRead
	return e
}

// WithMetadata replaces the user metadata with a copy of md.
func (e *ExtraArgs) WithMetadata(md map[string]string) *ExtraArgs {
	if e == nil {
		e = &ExtraArgs{}
	}
	e.Metadata = maps.Clone(md)
	return e
}

// WithGrant sets explicit read and full-control grantees, for example
// `id="canonical-user-id"` or `uri="http://acs.amazonaws.com/groups/global/AllUsers"`.
func (e *ExtraArgs) WithGrant(read, fullControl string) *ExtraArgs {
	if e == nil {
		e = &ExtraArgs{}
	}
	e.GrantRead = read
	e.GrantFullControl = fullControl
	return e
}

func (e *ExtraArgs) WithContentType(contentType string) *ExtraArgs {
	if e == nil {
		e = &ExtraArgs{}
	}
	e.ContentType = contentType
	return e
}

// Map renders the set options under their S3 API parameter names.
func (e *ExtraArgs) Map() map[string]any {
	m := map[string]any{}
	if e == nil {
		return m
	}
	if e.ACL != "" {
		m["ACL"] = string(e.ACL)
	}
	if e.Metadata != nil {
		m["Metadata"] = maps.Clone(e.Metadata)
	}
	if e.GrantRead != "" {
		m["GrantRead"] = e.GrantRead
	}
	if e.GrantFullControl != "" {
		m["GrantFullControl"] = e.GrantFullControl
	}
	if e.ContentType != "" {
		m["ContentType"] = e.ContentType
	}
	return m
}

func (e *ExtraArgs) apply(in *s3.PutObjectInput) {
	if e == nil {
		return
	}
	if e.ACL != "" {
		in.ACL = e.ACL
	}
	if e.Metadata != nil {
		in.Metadata = maps.Clone(e.Metadata)
	}
	if e.GrantRead != "" {
		in.GrantRead = aws.String(e.GrantRead)
	}
	if e.GrantFullControl != "" {
		in.GrantFullControl = aws.String(e.GrantFullControl)
	}
	if e.ContentType != "" {
		in.ContentType = aws.String(e.ContentType)
	}
}
