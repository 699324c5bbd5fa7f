package clients

import (
	"context"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

func classifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED):
		return domain.NetworkError(err)
	}
	return err
}

func isInsufficientBalanceMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "insufficient balance") || strings.Contains(msg, "insufficient funds")
}
