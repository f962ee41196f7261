package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// HeaderContentType names the payload codec of a message
const HeaderContentType = "content-type"

const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

// Codec turns message payloads into values and back
type Codec interface {
	ContentType() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// JSONCodec encodes payloads as JSON documents
type JSONCodec struct{}

func (JSONCodec) ContentType() string { return ContentTypeJSON }

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// ProtoCodec encodes payloads as a google.protobuf.Struct in the protobuf
// binary format. Values go through their JSON form, so the json tags of the
// models define the field names on the wire.
type ProtoCodec struct{}

func (ProtoCodec) ContentType() string { return ContentTypeProtobuf }

func (ProtoCodec) Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("protobuf payload must be an object: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func (ProtoCodec) Unmarshal(data []byte, v interface{}) error {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// CodecFor returns the codec configured by name ("json" or "protobuf")
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "protobuf", "proto":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown kafka codec %q", name)
	}
}

// CodecFromHeaders picks the codec named in the content-type header, or fallback
func CodecFromHeaders(headers []kafka.Header, fallback Codec) Codec {
	for _, h := range headers {
		if h.Key != HeaderContentType {
			continue
		}
		switch string(h.Value) {
		case ContentTypeJSON:
			return JSONCodec{}
		case ContentTypeProtobuf:
			return ProtoCodec{}
		}
	}
	return fallback
}
