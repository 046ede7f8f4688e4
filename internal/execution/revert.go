package execution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
)

// decodeRevertData turns revert return data into a readable reason.
// Error(string) and Panic(uint256) are decoded; other selectors are
// reported as custom errors.
func decodeRevertData(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
}

func decodeRevertFromError(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	switch data := dataErr.ErrorData().(type) {
	case string:
		return decodeRevertData(common.FromHex(strings.TrimSpace(data)))
	case []byte:
		return decodeRevertData(data)
	default:
		return ""
	}
}

func wrapEVMExecutionError(code clierr.Code, message string, err error) *clierr.Error {
	if reason := decodeRevertFromError(err); reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return clierr.Wrap(code, message, err)
}
