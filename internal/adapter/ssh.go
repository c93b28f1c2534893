package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"iosctl/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach one device
type SSHConfig struct {
	Address    string
	Port       int
	Credential *domain.Credential

	// KnownHostsPath enables host key verification
	KnownHostsPath     string
	InsecureSkipVerify bool

	// Algorithm overrides for devices that only speak legacy ciphers
	Ciphers           []string
	KeyExchanges      []string
	HostKeyAlgorithms []string

	Timeout time.Duration
}

// SSHSession is an interactive shell on a device
type SSHSession struct {
	*stream
	client  *ssh.Client
	session *ssh.Session
}

// Dial opens an SSH connection, requests a pseudo terminal and starts a shell
func Dial(ctx context.Context, cfg SSHConfig, logger zerolog.Logger) (*SSHSession, error) {
	config, err := buildSSHConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	logger = logger.With().Str("component", "ssh").Str("device", addr).Logger()
	logger.Info().Str("credential", cfg.Credential.ID).Msg("connected")

	return &SSHSession{
		stream:  newStream(stdout, stdin, logger),
		client:  client,
		session: session,
	}, nil
}

// Close ends the shell and the connection
func (s *SSHSession) Close() error {
	s.stream.Close()
	s.session.Close()
	return s.client.Close()
}

// buildSSHConfig creates an SSH client config from the device credential
func buildSSHConfig(cfg SSHConfig) (*ssh.ClientConfig, error) {
	if cfg.Credential == nil {
		return nil, errors.New("no credential configured")
	}
	auth, err := buildAuthMethods(cfg.Credential)
	if err != nil {
		return nil, err
	}
	callback, err := buildHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            cfg.Credential.Username(),
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         cfg.Timeout,
		Config: ssh.Config{
			Ciphers:      cfg.Ciphers,
			KeyExchanges: cfg.KeyExchanges,
		},
		HostKeyAlgorithms: cfg.HostKeyAlgorithms,
	}, nil
}

func buildHostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsPath != "" {
		callback, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("error parsing known_hosts file: %w", err)
		}
		return callback, nil
	}
	if cfg.InsecureSkipVerify {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errors.New("no SSH host key policy: set known_hosts path or insecure_skip_verify")
}

// buildAuthMethods supports key-based and password authentication
func buildAuthMethods(cred *domain.Credential) ([]ssh.AuthMethod, error) {
	if cred.Username() == "" {
		return nil, fmt.Errorf("username not found in credential %s", cred.ID)
	}

	switch cred.Type {
	case domain.CredentialSSHKey:
		key := cred.Data["private_key"]
		if key == "" {
			return nil, fmt.Errorf("private_key not found in credential %s", cred.ID)
		}
		if data, err := os.ReadFile(key); err == nil {
			key = string(data)
		}

		var signer ssh.Signer
		var err error
		if passphrase := cred.Data["passphrase"]; passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(key), []byte(passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(key))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil

	case domain.CredentialSSHPassword:
		password := cred.Data["password"]
		if password == "" {
			return nil, fmt.Errorf("password not found in credential %s", cred.ID)
		}
		// IOS often offers keyboard-interactive only
		return []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported credential type: %s", cred.Type)
	}
}
