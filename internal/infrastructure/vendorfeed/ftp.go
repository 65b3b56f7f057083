package vendorfeed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/catsync/backend/internal/domain/vendor"
)

// Credential field names expected by the FTP handler.
const (
	ftpFieldHost     = "host"
	ftpFieldPort     = "port"
	ftpFieldUsername = "username"
	ftpFieldPassword = "password"
)

const defaultFTPPort = "21"

// maxFeedSize caps a downloaded feed to prevent memory exhaustion
const maxFeedSize = 64 * 1024 * 1024 // 64MB

// FTPHandler retrieves feeds published as files on a vendor FTP server. The
// remote file path comes from the vendor definition's FeedEndpoint; host and
// login come from the tenant's credentials.
type FTPHandler struct {
	dialTimeout time.Duration
}

// NewFTPHandler creates an FTP feed handler
func NewFTPHandler(dialTimeout time.Duration) *FTPHandler {
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}
	return &FTPHandler{dialTimeout: dialTimeout}
}

// Protocol returns the protocol family this handler implements
func (h *FTPHandler) Protocol() vendor.FeedProtocol {
	return vendor.FeedProtocolFTP
}

// FetchFeed downloads the feed file named by the vendor definition.
func (h *FTPHandler) FetchFeed(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) ([]byte, error) {
	conn, err := h.connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(def.FeedEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving %s: %v", vendor.ErrFeedUnavailable, def.FeedEndpoint, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", vendor.ErrFeedTransient, def.FeedEndpoint, err)
	}
	return data, nil
}

// TestConnection dials and authenticates without downloading the feed.
func (h *FTPHandler) TestConnection(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) error {
	conn, err := h.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.NoOp(); err != nil {
		return fmt.Errorf("%w: %v", vendor.ErrFeedUnavailable, err)
	}
	return nil
}

// ParseRows parses the downloaded file into raw rows
func (h *FTPHandler) ParseRows(def *vendor.VendorDefinition, data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	return parseByFormat(def, data)
}

// connect dials and logs in with the tenant credentials.
func (h *FTPHandler) connect(ctx context.Context, creds vendor.Credentials) (*ftp.ServerConn, error) {
	port := creds.Get(ftpFieldPort)
	if port == "" {
		port = defaultFTPPort
	}
	addr := fmt.Sprintf("%s:%s", creds.Get(ftpFieldHost), port)

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(h.dialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", vendor.ErrFeedTransient, addr, err)
	}

	if err := conn.Login(creds.Get(ftpFieldUsername), creds.Get(ftpFieldPassword)); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("%w: %v", vendor.ErrFeedAuthFailed, err)
	}
	return conn, nil
}
