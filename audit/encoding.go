package audit

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	RegisterEncoder("json", func(r Record) ([]byte, error) {
		return json.Marshal(r)
	})
	RegisterEncoder("msgpack", func(r Record) ([]byte, error) {
		var buf bytes.Buffer
		if err := msgpack.NewEncoder(&buf).Encode(r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}
