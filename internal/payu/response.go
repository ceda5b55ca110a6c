package payu

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// StatusResponse is the XML document returned by Payment/get.
type StatusResponse struct {
	XMLName xml.Name    `xml:"response"`
	Status  string      `xml:"status"`
	Trans   Transaction `xml:"trans"`
}

// Transaction holds the raw trans node. Values are kept as received because
// the response signature is computed over the exact strings.
type Transaction struct {
	ID        string `xml:"id"`
	PosID     string `xml:"pos_id"`
	SessionID string `xml:"session_id"`
	OrderID   string `xml:"order_id"`
	Amount    string `xml:"amount"`
	Status    string `xml:"status"`
	PayType   string `xml:"pay_type"`
	Desc      string `xml:"desc"`
	Create    string `xml:"create"`
	Init      string `xml:"init"`
	Sent      string `xml:"sent"`
	Recv      string `xml:"recv"`
	Cancel    string `xml:"cancel"`
	Ts        string `xml:"ts"`
	Sig       string `xml:"sig"`
}

// ResponseParser decodes a status response body.
type ResponseParser interface {
	Parse(data []byte) (*StatusResponse, error)
}

type xmlParser struct{}

// NewXMLParser returns the encoding/xml based ResponseParser.
func NewXMLParser() ResponseParser {
	return xmlParser{}
}

func (xmlParser) Parse(data []byte) (*StatusResponse, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty xml document")
	}

	var res StatusResponse
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = passthroughCharset
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return &res, nil
}

// The gateway declares encoding="UTF-8" (sometimes lowercase or ISO-8859-2
// on legacy accounts); the UTF endpoint always sends UTF-8 bytes.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// TimestampParser turns a gateway timestamp into a time in loc.
type TimestampParser func(value string, loc *time.Location) (time.Time, error)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp is the default TimestampParser.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
