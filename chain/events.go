package chain

import (
	"errors"
	"fmt"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// FindEventAttribute returns the value of the first attribute key emitted in
// an event of eventType.
func FindEventAttribute(resp *interfaces.TxResponse, eventType, key string) (string, error) {
	if resp != nil {
		for _, event := range resp.Events {
			if event.Type != eventType {
				continue
			}
			for _, attr := range event.Attributes {
				if attr.Key == key {
					return attr.Value, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%s.%s: %w", eventType, key, interfaces.ErrEventNotFound)
}

// CheckTxResponse converts a rejected transaction into an error.
func CheckTxResponse(resp *interfaces.TxResponse) error {
	if resp == nil {
		return errors.New("empty transaction response")
	}
	if resp.Failed() {
		return fmt.Errorf("transaction %s failed at height %d with code %d: %s", resp.TxHash, resp.Height, resp.Code, resp.RawLog)
	}
	return nil
}
