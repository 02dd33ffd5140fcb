// internal/vpn/artifacts.go
package vpn

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// artifacts are the temporary files handed to one client process.
type artifacts struct {
	configPath string
	authPath   string

	once sync.Once
}

// writeArtifacts writes the config and, when both credentials are present, an
// auth-user-pass file into dir. On failure nothing is left behind.
func writeArtifacts(dir, configText, username, password string) (*artifacts, error) {
	a := &artifacts{}

	cfgPath, err := writeTemp(dir, "vpn-*.ovpn", configText)
	if err != nil {
		return nil, fmt.Errorf("failed to write VPN config file: %w", err)
	}
	a.configPath = cfgPath

	if username != "" && password != "" {
		authPath, err := writeTemp(dir, "vpn-auth-*.txt", username+"\n"+password+"\n")
		if err != nil {
			a.release()
			return nil, fmt.Errorf("failed to write VPN credential file: %w", err)
		}
		a.authPath = authPath
	}
	return a, nil
}

func writeTemp(dir, pattern, content string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()

	if err := f.Chmod(0o600); err != nil {
		log.Debugf("Could not chmod '%s': %v", name, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// release deletes the files. It runs at most once; removal failures are
// logged and otherwise ignored.
func (a *artifacts) release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		for _, p := range []string{a.configPath, a.authPath} {
			if p == "" {
				continue
			}
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Warnf("Failed to remove temporary VPN file '%s': %v", p, err)
				continue
			}
			log.Debug("Removed temporary VPN file", "path", p)
		}
	})
}
