package cba

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	cbaNamespace  = "http://www.cba.am/"
	soapNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	xsiNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNamespace  = "http://www.w3.org/2001/XMLSchema"
)

const (
	xmlCurrentDateElement  = "CurrentDate"
	xmlExchangeRateElement = "ExchangeRate"
)

// requestDateLayout is the xsd:dateTime of the requested day, the time is always midnight
const requestDateLayout = "2006-01-02T00:00:00"

type XMLEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XSI     string   `xml:"xmlns:xsi,attr"`
	XSD     string   `xml:"xmlns:xsd,attr"`
	SOAP    string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Request XMLRatesByDateByISO
	} `xml:"soap:Body"`
}

type XMLRatesByDateByISO struct {
	XMLName xml.Name `xml:"http://www.cba.am/ ExchangeRatesByDateByISO"`
	Date    string   `xml:"date"`
	ISO     string   `xml:"ISO"`
}

type XMLExchangeRate struct {
	ISO        string `xml:"ISO"`
	Amount     string `xml:"Amount"`
	Rate       string `xml:"Rate"`
	Difference string `xml:"Difference"`
}

// encodeXML returns the SOAP 1.1 envelope of the ExchangeRatesByDateByISO call
func encodeXML(date time.Time, code string) ([]byte, error) {
	envelope := XMLEnvelope{
		XSI:  xsiNamespace,
		XSD:  xsdNamespace,
		SOAP: soapNamespace,
	}
	envelope.Body.Request = XMLRatesByDateByISO{
		Date: date.Format(requestDateLayout),
		ISO:  code,
	}

	b, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("xml marshal: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(xml.Header)+len(b)))
	buf.WriteString(xml.Header)
	buf.Write(b)

	return buf.Bytes(), nil
}

// decodeXML parses the answer in streaming mode. Only the first CurrentDate and the first ExchangeRate of
// the bank namespace are taken, the envelope around them is skipped
func decodeXML(b []byte) (dailyRate, error) {
	var daily dailyRate
	var hasRoot, hasCurrentDate bool

	decoder := xml.NewDecoder(bytes.NewReader(b))
	decoder.CharsetReader = charset.NewReaderLabel

TokenLoop:
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break TokenLoop
			}

			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return daily, fmt.Errorf("%w: %v", errDecodeToken, syntaxErr.Error())
			}

			return daily, fmt.Errorf("decode token: %w", err)
		}

		tp, ok := token.(xml.StartElement)
		if !ok {
			continue TokenLoop
		}

		hasRoot = true
		if tp.Name.Space != cbaNamespace {
			continue TokenLoop
		}

		switch tp.Name.Local {
		case xmlCurrentDateElement:
			if hasCurrentDate {
				continue TokenLoop
			}

			var currentDate string
			if err := decoder.DecodeElement(&currentDate, &tp); err != nil {
				return daily, decodeElementErr(err)
			}

			daily.currentDate = strings.TrimSpace(currentDate)
			hasCurrentDate = true
		case xmlExchangeRateElement:
			if daily.rate != nil {
				continue TokenLoop
			}

			var node XMLExchangeRate
			if err := decoder.DecodeElement(&node, &tp); err != nil {
				return daily, decodeElementErr(err)
			}

			daily.rate = &node
		}
	}

	if !hasRoot {
		return daily, fmt.Errorf("%w: document has no root element", errDecodeToken)
	}

	return daily, nil
}

func decodeElementErr(err error) error {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: %v", errDecodeToken, syntaxErr.Error())
	}

	return fmt.Errorf("decode element: %w", err)
}
