package state

// Decision gates a single intercepted request. A hook resolves it exactly
// once with Proceed or Veto; a hook that returns without resolving counts as
// a veto. Later resolutions are ignored.
type Decision struct {
	resolved bool
	allowed  bool
}

// Proceed allows the intercepted request.
func (d *Decision) Proceed() {
	if d.resolved {
		return
	}
	d.resolved = true
	d.allowed = true
}

// Veto rejects the intercepted request.
func (d *Decision) Veto() {
	if d.resolved {
		return
	}
	d.resolved = true
}

// Allowed reports whether the request may go ahead.
func (d *Decision) Allowed() bool {
	return d.resolved && d.allowed
}

// ChatDecision additionally lets a chat hook rewrite the message text.
type ChatDecision struct {
	Decision
	replacement string
	replaced    bool
}

// ProceedWith allows the chat message with replacement text.
func (d *ChatDecision) ProceedWith(text string) {
	if d.resolved {
		return
	}
	d.replacement = text
	d.replaced = true
	d.Proceed()
}

// Text returns the message text to deliver, falling back to the original
// when the hook did not rewrite it.
func (d *ChatDecision) Text(original string) string {
	if d.replaced {
		return d.replacement
	}
	return original
}

// CustomDecision additionally lets a custom-message hook rewrite the payload.
type CustomDecision struct {
	Decision
	replacement []byte
	replaced    bool
}

// ProceedWith allows the custom message with a replacement payload.
func (d *CustomDecision) ProceedWith(payload []byte) {
	if d.resolved {
		return
	}
	d.replacement = payload
	d.replaced = true
	d.Proceed()
}

// Payload returns the payload to deliver, falling back to the original when
// the hook did not rewrite it.
func (d *CustomDecision) Payload(original []byte) []byte {
	if d.replaced {
		return d.replacement
	}
	return original
}

// RoomHooks intercepts room activity. Every field is optional: a nil hook
// lets the corresponding request proceed unchanged. Hooks run synchronously
// under the registry lock before the request takes effect, so they see the
// room in its pre-request state.
type RoomHooks struct {
	// Join runs before a join is acknowledged. The user already exists and
	// counts against the room's capacity; a veto destroys it without any
	// broadcast.
	Join func(u *User, d *Decision)

	// ChangeRoom runs on the room a user is leaving, before the move.
	ChangeRoom func(u *User, from, to *Room, d *Decision)

	// Chat runs before a chat message is delivered or broadcast.
	Chat func(sender, target *User, text string, d *ChatDecision)

	// Custom runs before a custom message is delivered or broadcast.
	Custom func(sender *User, payload []byte, d *CustomDecision)

	// Dispose runs when the room is removed, after its members are gone.
	Dispose func(r *Room)
}
