package server

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of engine messages.
const CodecName = "xdr"

// xdrCodec carries plain Go structs as XDR.
type xdrCodec struct{}

func init() {
	encoding.RegisterCodec(xdrCodec{})
}

func (xdrCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

func (xdrCodec) Unmarshal(data []byte, v any) error {
	if _, err := xdr.Unmarshal(bytes.NewReader(data), v); err != nil {
		return fmt.Errorf("xdr unmarshal %T: %w", v, err)
	}
	return nil
}

func (xdrCodec) Name() string {
	return CodecName
}
