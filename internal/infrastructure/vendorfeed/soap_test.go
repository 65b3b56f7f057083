package vendorfeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/vendor"
)

func soapDefinition(t *testing.T, endpoint string) *vendor.VendorDefinition {
	t.Helper()
	def, err := vendor.NewVendorDefinition("initech", "Initech Supply", vendor.FeedProtocolSOAP, vendor.FeedFormatXML, 3)
	require.NoError(t, err)
	def.FeedEndpoint = endpoint
	return def
}

const soapFeedResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
	<soap:Body>
		<GetCatalogFeedResponse>
			<product><upc>012345678905</upc><price>10.00</price></product>
			<product><upc>012345678912</upc><price>7.50</price></product>
		</GetCatalogFeedResponse>
	</soap:Body>
</soap:Envelope>`

const soapFaultResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
	<soap:Body>
		<soap:Fault>
			<faultcode>soap:Client</faultcode>
			<faultstring>invalid credentials</faultstring>
		</soap:Fault>
	</soap:Body>
</soap:Envelope>`

func TestSOAPHandler_FetchFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("should post envelope with credentials and extract payload", func(t *testing.T) {
		var gotBody, gotAction, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			gotAction = r.Header.Get("SOAPAction")
			gotContentType = r.Header.Get("Content-Type")
			w.Write([]byte(soapFeedResponse))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "urn:GetCatalogFeed", 5*time.Second)

		payload, err := handler.FetchFeed(ctx, soapDefinition(t, server.URL), vendor.Credentials{
			"username": "feeds",
			"password": "hunter2",
		})

		require.NoError(t, err)
		assert.Contains(t, gotBody, "<Username>feeds</Username>")
		assert.Contains(t, gotBody, "<GetCatalogFeed>")
		assert.Equal(t, "urn:GetCatalogFeed", gotAction)
		assert.Contains(t, gotContentType, "text/xml")
		assert.Contains(t, string(payload), "012345678905")
	})

	t.Run("should fetch and parse end to end", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(soapFeedResponse))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "", 5*time.Second)
		def := soapDefinition(t, server.URL)

		payload, err := handler.FetchFeed(ctx, def, vendor.Credentials{"username": "u", "password": "p"})
		require.NoError(t, err)

		rows, parseErrs, err := handler.ParseRows(def, payload)
		require.NoError(t, err)
		assert.Empty(t, parseErrs)
		require.Len(t, rows, 2)
		assert.Equal(t, "012345678905", rows[0].Fields["upc"])
		assert.Equal(t, "7.50", rows[1].Fields["price"])
	})

	t.Run("should classify client fault as auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(soapFaultResponse))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "", 5*time.Second)

		_, err := handler.FetchFeed(ctx, soapDefinition(t, server.URL), vendor.Credentials{"username": "u", "password": "bad"})

		assert.ErrorIs(t, err, vendor.ErrFeedAuthFailed)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("should classify connection refusal as transient", func(t *testing.T) {
		handler := NewSOAPHandler("GetCatalogFeed", "", time.Second)

		_, err := handler.FetchFeed(ctx, soapDefinition(t, "http://127.0.0.1:1"), vendor.Credentials{"username": "u", "password": "p"})

		assert.ErrorIs(t, err, vendor.ErrFeedTransient)
	})

	t.Run("should classify undecodable response as unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not xml at all"))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "", 5*time.Second)

		_, err := handler.FetchFeed(ctx, soapDefinition(t, server.URL), vendor.Credentials{"username": "u", "password": "p"})

		assert.ErrorIs(t, err, vendor.ErrFeedUnavailable)
	})
}

func TestSOAPHandler_TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("should succeed against healthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(soapFeedResponse))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "", 5*time.Second)

		err := handler.TestConnection(ctx, soapDefinition(t, server.URL), vendor.Credentials{"username": "u", "password": "p"})

		assert.NoError(t, err)
	})

	t.Run("should surface fault", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(soapFaultResponse))
		}))
		defer server.Close()
		handler := NewSOAPHandler("GetCatalogFeed", "", 5*time.Second)

		err := handler.TestConnection(ctx, soapDefinition(t, server.URL), vendor.Credentials{"username": "u", "password": "p"})

		assert.ErrorIs(t, err, vendor.ErrFeedAuthFailed)
	})
}
