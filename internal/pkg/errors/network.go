package errors

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
)

// IsConnectFailure reports whether err happened before a connection to the
// server was established: DNS, dial, proxy CONNECT or TLS handshake.
func IsConnectFailure(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "proxyconnect") {
		return true
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var authorityErr x509.UnknownAuthorityError
	if errors.As(err, &authorityErr) {
		return true
	}
	var hostErr x509.HostnameError
	return errors.As(err, &hostErr)
}
