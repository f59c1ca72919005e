package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"livecode/config"
	"livecode/service"
	"livecode/service/stors/progstor"
)

// SSHServer offers the programs over the sftp subsystem.
type SSHServer struct {
	conf    *ssh.ServerConfig
	handler *ProgramFileHandler
	ln      net.Listener
}

func NewSSHServer(cfg *config.Config, repo progstor.Repo, bus *service.Bus) (*SSHServer, error) {
	authorized, err := loadAuthorizedKeys(cfg.SSHAuthorizedKeysPath)
	if err != nil {
		return nil, err
	}
	sshConf := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorized == nil {
				return nil, nil
			}
			for _, k := range authorized {
				if bytes.Equal(k.Marshal(), key.Marshal()) {
					return nil, nil
				}
			}
			return nil, fmt.Errorf("unknown public key for %q", conn.User())
		},
	}
	priKey, err := os.ReadFile(cfg.SSHPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(priKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
	}
	sshConf.AddHostKey(signer)
	return &SSHServer{conf: sshConf, handler: NewProgramFileHandler(repo, bus)}, nil
}

// loadAuthorizedKeys returns nil when path is empty, which admits any key.
func loadAuthorizedKeys(path string) ([]ssh.PublicKey, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized keys: %w", err)
	}
	keys := []ssh.PublicKey{}
	for len(bytes.TrimSpace(data)) > 0 {
		key, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse authorized keys: %w", err)
		}
		keys = append(keys, key)
		data = rest
	}
	return keys, nil
}

func (s *SSHServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln
	slog.Info("SSH server listening on", "addr", ln.Addr().String())
	return nil
}

func (s *SSHServer) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Close.
func (s *SSHServer) Serve() {
	for {
		rawConn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("accept error", "err", err)
			}
			return
		}
		go s.HandleConn(rawConn)
	}
}

func (s *SSHServer) Close() error {
	if s.ln == nil {
		return nil
	}
	slog.Info("SSH server is shutting down")
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *SSHServer) HandleConn(conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.conf)
	if err != nil {
		slog.Error("failed to create SSH server connection", "err", err)
		return
	}
	defer sshConn.Close()
	slog.Info(
		"SSH connection established",
		"remote_addr", sshConn.RemoteAddr(),
		"user", sshConn.User(),
	)
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		channel, requests, err := newChan.Accept()
		if err != nil {
			slog.Error("failed to accept channel", "err", err)
			continue
		}
		go s.handleSession(sshConn, channel, requests)
	}
}

func (s *SSHServer) handleSession(sshConn *ssh.ServerConn, channel ssh.Channel, in <-chan *ssh.Request) {
	defer channel.Close()
	for req := range in {
		if req.Type != "subsystem" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}
		var payload struct {
			Name string
		}
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			slog.Error("failed to unmarshal subsystem request", "err", err)
			req.Reply(false, nil)
			return
		}
		if payload.Name != "sftp" {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		requestServer := sftp.NewRequestServer(channel, s.handler.Handlers())
		slog.Info("starting SFTP server for client", "remote_addr", sshConn.RemoteAddr(), "user", sshConn.User())
		if err := requestServer.Serve(); err != nil && err != io.EOF {
			slog.Error("SFTP server error", "err", err)
		}
		requestServer.Close()
		slog.Info("SFTP server session ended", "remote_addr", sshConn.RemoteAddr(), "user", sshConn.User())
		return
	}
}
