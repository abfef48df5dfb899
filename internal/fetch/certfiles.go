package fetch

import (
	"fmt"
	"log"
	"os"
)

// certFiles holds the on-disk locations of client certificate material for
// one fetch call. When the material was supplied as raw PEM content the
// files are ephemeral and must be released after the call.
type certFiles struct {
	certPath string
	keyPath  string
	temp     []string
}

// materializeCert resolves client certificate material to file paths.
// Configured file paths are used directly. Raw PEM content is written to
// owner-only temp files that release() removes on every exit path.
func materializeCert(cc *ClientCert, inputName string) (*certFiles, error) {
	if cc == nil {
		return nil, nil
	}

	if cc.CertPath != "" && cc.KeyPath != "" {
		return &certFiles{certPath: cc.CertPath, keyPath: cc.KeyPath}, nil
	}

	if cc.CertPEM == "" || cc.KeyPEM == "" {
		return nil, nil
	}

	cf := &certFiles{}
	certPath, err := writeTempPEM(inputName+"_cert_", cc.CertPEM)
	if err != nil {
		return nil, fmt.Errorf("write client cert: %w", err)
	}
	cf.certPath = certPath
	cf.temp = append(cf.temp, certPath)

	keyPath, err := writeTempPEM(inputName+"_key_", cc.KeyPEM)
	if err != nil {
		cf.release()
		return nil, fmt.Errorf("write client key: %w", err)
	}
	cf.keyPath = keyPath
	cf.temp = append(cf.temp, keyPath)

	return cf, nil
}

func writeTempPEM(prefix, content string) (string, error) {
	f, err := os.CreateTemp("", prefix+"*.pem")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
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

// release deletes temp-backed certificate files. Safe to call on a nil
// receiver and for path-backed material (nothing to delete).
func (cf *certFiles) release() {
	if cf == nil {
		return
	}
	for _, p := range cf.temp {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[fetch] failed to delete temp cert file %s: %v", p, err)
		}
	}
	cf.temp = nil
}
