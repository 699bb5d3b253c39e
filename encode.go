package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/url"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Media types understood out of the box.
const (
	ContentTypeJSON    = contentTypeJSON
	ContentTypeYAML    = "application/yaml"
	ContentTypeMsgPack = "application/msgpack"
	ContentTypeForm    = "application/x-www-form-urlencoded"
	ContentTypeProblem = "application/problem+json"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format into generic values
// (maps, slices, strings, numbers, booleans) for schema validation.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader) (any, error)
}

// jsonCodec implements both Encoder and Decoder for JSON.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// yamlCodec implements both Encoder and Decoder for YAML. Values are
// encoded through their JSON form so json struct tags apply.
type yamlCodec struct{}

func (yamlCodec) ContentType() string { return ContentTypeYAML }

func (yamlCodec) Encode(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader) (any, error) {
	var v any
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// msgpackCodec implements both Encoder and Decoder for MessagePack, using
// json struct tags for field names.
type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return ContentTypeMsgPack }

func (msgpackCodec) Encode(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(v)
}

func (msgpackCodec) Decode(r io.Reader) (any, error) {
	var v any
	if err := msgpack.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// formCodec decodes url-encoded forms. Repeated keys become string slices.
type formCodec struct{}

func (formCodec) ContentType() string { return ContentTypeForm }

func (formCodec) Decode(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	values, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		out[k] = vs
	}
	return out, nil
}

// codecRegistry holds all registered encoders and decoders. Later
// registrations for the same content type win.
type codecRegistry struct {
	encoders map[string]Encoder
	decoders map[string]Decoder
}

// newCodecRegistry builds a registry with the built-in codecs followed by
// any user-registered encoders and decoders.
func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make(map[string]Encoder),
		decoders: make(map[string]Decoder),
	}
	for _, enc := range append([]Encoder{jsonCodec{}, yamlCodec{}, msgpackCodec{}}, userEncoders...) {
		cr.encoders[enc.ContentType()] = enc
	}
	for _, dec := range append([]Decoder{jsonCodec{}, yamlCodec{}, msgpackCodec{}, formCodec{}}, userDecoders...) {
		cr.decoders[dec.ContentType()] = dec
	}
	return cr
}

var defaultCodecs = newCodecRegistry(nil, nil)

// encoderFor returns the encoder for the given media type.
func (cr *codecRegistry) encoderFor(contentType string) (Encoder, bool) {
	enc, ok := cr.encoders[mediaType(contentType)]
	return enc, ok
}

// decoderFor returns the decoder for the given media type.
func (cr *codecRegistry) decoderFor(contentType string) (Decoder, bool) {
	dec, ok := cr.decoders[mediaType(contentType)]
	return dec, ok
}

// mediaType strips parameters such as charset from a content type.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

// toGeneric converts v to the value JSON decoding would produce, so typed
// responses can be validated against schemas and encoded with json names.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
