package constants

// shared constants used by multiple packages

const (
	ORDER_STATE_CREATED   = "CREATED"
	ORDER_STATE_COMPLETED = "COMPLETED"
	ORDER_STATE_FAILED    = "FAILED"

	PAYMENT_STATE_EXPECT_PAYMENT = "EXPECT_PAYMENT"
	PAYMENT_STATE_PAID           = "PAID"
	PAYMENT_STATE_REFUNDED       = "REFUNDED"
)

// Protocol numbers served by this daemon.
const (
	PROTOCOL_LSPS0 = 0
	PROTOCOL_LSPS1 = 1
)

func OrderStates() []string {
	return []string{
		ORDER_STATE_CREATED,
		ORDER_STATE_COMPLETED,
		ORDER_STATE_FAILED,
	}
}
