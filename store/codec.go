package store

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformed is returned by a Codec for a payload that is not an entry.
var ErrMalformed = errors.New("store: malformed entry")

// Codec converts an Entry to and from the string kept in the medium.
type Codec interface {
	Encode(e Entry) (string, error)
	// Decode returns ErrMalformed unless the payload carries the data field.
	// An absent or unparsable creation time decodes to the zero time.
	Decode(s string) (Entry, error)
}

type jsonCodec struct{}

// JSONCodec stores entries as {"data": "...", "created": "<RFC 3339>"}, the
// envelope browser local storage holds.
var JSONCodec Codec = jsonCodec{}

type jsonEnvelope struct {
	Data    *string         `json:"data"`
	Created json.RawMessage `json:"created,omitempty"`
}

func (jsonCodec) Encode(e Entry) (string, error) {
	buf, err := json.Marshal(struct {
		Data    string    `json:"data"`
		Created time.Time `json:"created"`
	}{e.Data, e.Created})
	if err != nil {
		return "", errors.Wrap(err, "store: encode entry")
	}
	return string(buf), nil
}

func (jsonCodec) Decode(s string) (Entry, error) {
	var env jsonEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return Entry{}, errors.Wrapf(ErrMalformed, "%s", err)
	}
	if env.Data == nil {
		return Entry{}, errors.Wrap(ErrMalformed, "missing data")
	}
	e := Entry{Data: *env.Data}
	var created time.Time
	if len(env.Created) > 0 && json.Unmarshal(env.Created, &created) == nil {
		e.Created = created
	}
	return e, nil
}

type msgpackCodec struct{}

// MsgpackCodec stores entries as msgpack maps. It suits server-side media
// that are never read by a browser.
var MsgpackCodec Codec = msgpackCodec{}

type msgpackEnvelope struct {
	Data    *string `msgpack:"data"`
	Created int64   `msgpack:"created"`
}

func (msgpackCodec) Encode(e Entry) (string, error) {
	var created int64
	if !e.Created.IsZero() {
		created = e.Created.UnixNano()
	}
	buf, err := msgpack.Marshal(&msgpackEnvelope{Data: &e.Data, Created: created})
	if err != nil {
		return "", errors.Wrap(err, "store: encode entry")
	}
	return string(buf), nil
}

func (msgpackCodec) Decode(s string) (Entry, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal([]byte(s), &env); err != nil {
		return Entry{}, errors.Wrapf(ErrMalformed, "%s", err)
	}
	if env.Data == nil {
		return Entry{}, errors.Wrap(ErrMalformed, "missing data")
	}
	e := Entry{Data: *env.Data}
	if env.Created > 0 {
		e.Created = time.Unix(0, env.Created)
	}
	return e, nil
}
