// internal/workers/voice/order-session/models.go
package ordersession

import "time"

// Greeting is the first line of every call.
const Greeting = "السلام علیکم! رحمتِ شیریں میں خوش آمدید۔ میں آپ کی کس طرح مدد کر سکتی ہوں؟"

// GreetingPrompt is injected as a system message to make the model speak
// first.
const GreetingPrompt = "System: Time to start. Say the exact greeting: '" + Greeting + "'"

// Session outcomes.
const (
	OutcomeOrderConfirmed = "order_confirmed"
	OutcomeNoOrder        = "no_order"
	OutcomeFailed         = "failed"
)

// Outcome summarises a finished call.
type Outcome struct {
	Room             string
	Status           string
	FarewellDetected bool
	OrderDetails     string
	ConfirmedAt      time.Time
}
