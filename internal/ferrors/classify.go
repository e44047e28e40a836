package ferrors

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"
	"net/url"
)

// Classify converts an arbitrary error returned by the net/http stack into
// a *FetchError, grounded on the same net.Error / url.Error / context
// triage the teacher's error builders perform for the SLURM transport.
func Classify(source string, err error) *FetchError {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if stderrors.As(err, &fe) {
		return fe
	}

	if stderrors.Is(err, context.Canceled) {
		return Wrap(CodeContextCanceled, source, "operation canceled", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeDeadlineExceeded, source, "context deadline exceeded", err)
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return Wrap(CodeDNSResolution, source, "dns resolution failed: "+dnsErr.Err, err)
	}

	var tlsErr *tls.CertificateVerificationError
	if stderrors.As(err, &tlsErr) {
		return Wrap(CodeTLSHandshake, source, "tls handshake failed", err)
	}

	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return Wrap(CodeNetworkTimeout, source, "request timed out", err)
		}
		return Wrap(CodeConnectionReset, source, urlErr.Error(), err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(CodeNetworkTimeout, source, "network timeout", err)
	}

	return Wrap(CodeUnknown, source, err.Error(), err)
}
