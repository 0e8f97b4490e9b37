package proto

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// Credentials is the payload of Register (all fields) and Login (no salt).
type Credentials struct {
	Username string
	Salt     []byte
	Verifier []byte
}

func (c Credentials) Struct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"username": structpb.NewStringValue(c.Username),
		"verifier": structpb.NewStringValue(base64.StdEncoding.EncodeToString(c.Verifier)),
	}
	if len(c.Salt) > 0 {
		fields["salt"] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(c.Salt))
	}
	return &structpb.Struct{Fields: fields}
}

func CredentialsFromStruct(s *structpb.Struct) (Credentials, error) {
	var c Credentials
	var err error
	c.Username = stringField(s, "username")
	if c.Verifier, err = bytesField(s, "verifier"); err != nil {
		return c, err
	}
	if c.Salt, err = bytesField(s, "salt"); err != nil {
		return c, err
	}
	return c, nil
}

// Snapshot is the payload of Push (scope and content) and the reply of Pull
// (content and clock). Clocks travel as decimal strings because structpb
// numbers are doubles.
type Snapshot struct {
	Scope   string
	Content string
	Clock   int64
}

func (s Snapshot) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"scope":   structpb.NewStringValue(s.Scope),
		"content": structpb.NewStringValue(s.Content),
		"clock":   structpb.NewStringValue(strconv.FormatInt(s.Clock, 10)),
	}}
}

func SnapshotFromStruct(st *structpb.Struct) (Snapshot, error) {
	s := Snapshot{Scope: stringField(st, "scope"), Content: stringField(st, "content")}
	if raw := stringField(st, "clock"); raw != "" {
		clock, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return s, fmt.Errorf("bad clock %q: %w", raw, err)
		}
		s.Clock = clock
	}
	return s, nil
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func bytesField(s *structpb.Struct, key string) ([]byte, error) {
	raw := stringField(s, key)
	if raw == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("bad %s: %w", key, err)
	}
	return b, nil
}
