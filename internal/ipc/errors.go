package ipc

import (
	"errors"
	"fmt"
	"net/rpc"
	"strings"

	"wavecatch/internal/services"
)

// wireError flattens err into the "[code] message" form carried by
// rpc.ServerError.
func wireError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s", services.Code(err), services.Message(err))
}

// fromWire restores the error class of a server-side failure. Transport
// errors pass through unchanged.
func fromWire(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	text := string(serverErr)
	if !strings.HasPrefix(text, "[") {
		return errors.New(text)
	}
	code, message, ok := strings.Cut(text[1:], "] ")
	if !ok {
		return errors.New(text)
	}
	return services.FromCode(services.ErrorCode(code), message)
}
