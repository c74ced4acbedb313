package drive

import (
	"context"
	"io"
	"net"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP uploader.
type FTPOptions struct {
	Host     string // host or host:port, port 21 assumed
	User     string
	Password string
	Dir      string // remote directory for uploads
	LinkBase string // public URL prefix the remote dir is served under
	Timeout  time.Duration
}

// FTPUploader stores artifacts on an FTP server that is fronted by a public
// HTTP mirror, so the returned link is LinkBase + filename.
type FTPUploader struct {
	opts FTPOptions
}

// NewFTPUploader creates an FTP-backed Uploader.
func NewFTPUploader(opts FTPOptions) *FTPUploader {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPUploader{opts: opts}
}

func (u *FTPUploader) Upload(ctx context.Context, r io.Reader, fileName string) (string, error) {
	host := u.opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("file", fileName))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(u.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "ftp: dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(u.opts.User, u.opts.Password); err != nil {
		return "", eris.Wrap(err, "ftp: login")
	}

	remote := path.Join(u.opts.Dir, fileName)
	if err := conn.Stor(remote, r); err != nil {
		return "", eris.Wrapf(err, "ftp: store %s", remote)
	}

	return strings.TrimSuffix(u.opts.LinkBase, "/") + "/" + fileName, nil
}
