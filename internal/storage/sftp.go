package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPClient implements ObjectStorage on a remote directory tree. Keys are
// slash separated paths below the base directory.
type SFTPClient struct {
	client  *sftp.Client
	conn    io.Closer
	baseDir string
}

// DialSFTP connects with a password or a private key. Without a known_hosts
// file the host key is not verified.
func DialSFTP(ctx context.Context, cfg config.SFTPConfig, log zerolog.Logger) (*SFTPClient, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, fmt.Errorf("sftp host and user must be provided")
	}

	auth, err := sftpAuth(cfg)
	if err != nil {
		return nil, err
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		hostKey, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	} else {
		log.Warn().Str("host", cfg.Host).Msg("SFTP_KNOWN_HOSTS not set, host key is not verified")
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp dial %s failed: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(raw, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
	})
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp session failed: %w", err)
	}

	return newSFTPClient(client, sshClient, cfg.BaseDir), nil
}

func newSFTPClient(client *sftp.Client, conn io.Closer, baseDir string) *SFTPClient {
	if baseDir == "" {
		baseDir = "/"
	}
	return &SFTPClient{client: client, conn: conn, baseDir: path.Clean(baseDir)}
}

func sftpAuth(cfg config.SFTPConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sftp key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sftp key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("sftp needs a password or a key file")
	}
	return methods, nil
}

func (c *SFTPClient) remote(key string) string {
	return path.Join(c.baseDir, path.Clean("/"+key))
}

// ListObjects lists regular files below prefix, which names a directory.
func (c *SFTPClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	err := c.walk(ctx, c.remote(prefix), &results)
	if errors.Is(err, fs.ErrNotExist) {
		return results, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sftp list failed: %w", err)
	}
	return results, nil
}

func (c *SFTPClient) walk(ctx context.Context, dir string, out *[]ObjectInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := c.client.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			if err := c.walk(ctx, p, out); err != nil {
				return err
			}
			continue
		}
		if !e.Mode().IsRegular() {
			continue
		}
		*out = append(*out, ObjectInfo{
			Key:  strings.TrimPrefix(strings.TrimPrefix(p, c.baseDir), "/"),
			Size: e.Size(),
		})
	}
	return nil
}

// GetObject reads a remote file.
func (c *SFTPClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	f, err := c.client.Open(c.remote(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("sftp open %s failed: %w", key, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("sftp read %s failed: %w", key, err)
	}
	return data, nil
}

// UploadObject writes data to key, creating parent directories.
func (c *SFTPClient) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	dst := c.remote(key)
	if err := c.client.MkdirAll(path.Dir(dst)); err != nil {
		return fmt.Errorf("sftp mkdir for %s failed: %w", key, err)
	}
	f, err := c.client.Create(dst)
	if err != nil {
		return fmt.Errorf("sftp create %s failed: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("sftp write %s failed: %w", key, err)
	}
	return f.Close()
}

func (c *SFTPClient) Close() error {
	err := c.client.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ ObjectStorage = (*SFTPClient)(nil)
