package vendorfeed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/catsync/backend/internal/domain/vendor"
)

// Credential field names expected by the SOAP handler.
const (
	soapFieldUsername = "username"
	soapFieldPassword = "password"
)

// soapEnvelope is the request document sent to the vendor service. The
// credentials travel in a UsernameToken security header, the way the older
// distributor endpoints expect them.
type soapEnvelope struct {
	XMLName xml.Name   `xml:"soap:Envelope"`
	SoapNS  string     `xml:"xmlns:soap,attr"`
	Header  soapHeader `xml:"soap:Header"`
	Body    soapBody   `xml:"soap:Body"`
}

type soapHeader struct {
	Security usernameToken `xml:"Security>UsernameToken"`
}

type usernameToken struct {
	Username string `xml:"Username"`
	Password string `xml:"Password"`
}

type soapBody struct {
	Operation operationElement
}

type operationElement struct {
	XMLName xml.Name
}

// soapResponseEnvelope captures the response body without committing to the
// vendor's payload schema; the inner XML is handed to the feed parser as-is.
type soapResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// soapFault is the standard fault shape, checked before payload extraction.
type soapFault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

// SOAPHandler retrieves feeds from vendors that still publish their catalog
// through a SOAP service. One operation returns the full feed document.
type SOAPHandler struct {
	httpClient *http.Client
	// operation is the request element name invoked on the service
	operation string
	// action is the SOAPAction header value
	action string
}

// NewSOAPHandler creates a SOAP feed handler invoking the given operation
func NewSOAPHandler(operation, action string, timeout time.Duration) *SOAPHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if operation == "" {
		operation = "GetCatalogFeed"
	}
	return &SOAPHandler{
		httpClient: &http.Client{Timeout: timeout},
		operation:  operation,
		action:     action,
	}
}

// Protocol returns the protocol family this handler implements
func (h *SOAPHandler) Protocol() vendor.FeedProtocol {
	return vendor.FeedProtocolSOAP
}

// FetchFeed invokes the feed operation and returns the response body payload.
func (h *SOAPHandler) FetchFeed(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) ([]byte, error) {
	return h.call(ctx, def.FeedEndpoint, creds)
}

// TestConnection invokes the feed operation and discards the payload. SOAP
// services have no cheaper authenticated probe; a fault or auth rejection
// surfaces the same way a sync would see it.
func (h *SOAPHandler) TestConnection(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) error {
	_, err := h.call(ctx, def.FeedEndpoint, creds)
	return err
}

// ParseRows parses the extracted payload into raw rows
func (h *SOAPHandler) ParseRows(def *vendor.VendorDefinition, data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	return parseByFormat(def, data)
}

// call posts the request envelope and extracts the response body payload.
func (h *SOAPHandler) call(ctx context.Context, url string, creds vendor.Credentials) ([]byte, error) {
	envelope := soapEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		Header: soapHeader{
			Security: usernameToken{
				Username: creds.Get(soapFieldUsername),
				Password: creds.Get(soapFieldPassword),
			},
		},
		Body: soapBody{
			Operation: operationElement{XMLName: xml.Name{Local: h.operation}},
		},
	}
	reqBody, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("vendorfeed: building envelope: %w", err)
	}
	reqBody = append([]byte(xml.Header), reqBody...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("vendorfeed: building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	if h.action != "" {
		req.Header.Set("SOAPAction", h.action)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vendor.ErrFeedTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", vendor.ErrFeedTransient, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", vendor.ErrFeedAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 500 && resp.StatusCode != http.StatusInternalServerError:
		// 500 carries SOAP faults and is inspected below.
		return nil, fmt.Errorf("%w: HTTP %d", vendor.ErrFeedTransient, resp.StatusCode)
	}

	var respEnvelope soapResponseEnvelope
	if err := xml.Unmarshal(body, &respEnvelope); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", vendor.ErrFeedUnavailable, err)
	}

	if fault := extractFault(respEnvelope.Body.Inner); fault != nil {
		if fault.Code == "soap:Client" || fault.Code == "Client" {
			return nil, fmt.Errorf("%w: %s", vendor.ErrFeedAuthFailed, fault.Reason)
		}
		return nil, fmt.Errorf("%w: %s: %s", vendor.ErrFeedUnavailable, fault.Code, fault.Reason)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", vendor.ErrFeedUnavailable, resp.StatusCode)
	}
	return respEnvelope.Body.Inner, nil
}

// extractFault returns the fault carried in the body payload, if any.
func extractFault(inner []byte) *soapFault {
	decoder := xml.NewDecoder(bytes.NewReader(inner))
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil
		}
		if start, ok := token.(xml.StartElement); ok {
			if start.Name.Local != "Fault" {
				return nil
			}
			var fault soapFault
			if err := decoder.DecodeElement(&fault, &start); err != nil {
				return nil
			}
			return &fault
		}
	}
}
