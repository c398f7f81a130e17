package storageback

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sftpSession holds the two clients that must be closed together.
type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *sftpSession) Close() {
	s.sftp.Close()
	s.ssh.Close()
}

// dialSFTP connects using the server's access map: host, user, optionally
// port (default 22), password or privateKey (base64 or raw PEM).
func dialSFTP(ctx context.Context, access map[string]string) (*sftpSession, error) {
	host := access["host"]
	port := access["port"]
	if port == "" {
		port = "22"
	}
	user := access["user"]
	if host == "" || user == "" {
		return nil, fmt.Errorf("missing required access keys: host, user")
	}

	var auths []ssh.AuthMethod
	if pk := access["privateKey"]; pk != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(pk)
		if err != nil {
			keyBytes = []byte(pk)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if pw := access["password"]; pw != "" {
		auths = append(auths, ssh.Password(pw))
	} else {
		return nil, fmt.Errorf("no auth method provided; set password or privateKey")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(host, port)
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	return &sftpSession{ssh: sshClient, sftp: sftpClient}, nil
}

func writeSFTP(ctx context.Context, access map[string]string, remotePath string, r io.Reader) error {
	sess, err := dialSFTP(ctx, access)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := mkdirAllSFTP(sess.sftp, path.Dir(remotePath)); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", path.Dir(remotePath), err)
	}

	f, err := sess.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}
	return nil
}

func readSFTP(ctx context.Context, access map[string]string, remotePath string) (io.ReadCloser, error) {
	sess, err := dialSFTP(ctx, access)
	if err != nil {
		return nil, err
	}
	f, err := sess.sftp.Open(remotePath)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("open remote file %s: %w", remotePath, err)
	}
	return &sftpReader{f: f, sess: sess}, nil
}

type sftpReader struct {
	f    *sftp.File
	sess *sftpSession
}

func (r *sftpReader) Read(p []byte) (int, error) { return r.f.Read(p) }

func (r *sftpReader) Close() error {
	err := r.f.Close()
	r.sess.Close()
	return err
}

func statSFTP(ctx context.Context, access map[string]string, remotePath string) (int64, error) {
	sess, err := dialSFTP(ctx, access)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	fi, err := sess.sftp.Stat(remotePath)
	if err != nil {
		return 0, fmt.Errorf("stat remote file %s: %w", remotePath, err)
	}
	return fi.Size(), nil
}

func deleteSFTP(ctx context.Context, access map[string]string, remotePath string) error {
	sess, err := dialSFTP(ctx, access)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.sftp.Remove(remotePath); err != nil {
		return fmt.Errorf("remove remote file %s: %w", remotePath, err)
	}
	return nil
}

// mkdirAllSFTP mimics os.MkdirAll by creating each path segment in turn.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
