package obs

import "testing"

func TestNopEmitter_NeverErrors(t *testing.T) {
	var e Emitter = NopEmitter{}
	e.Emit(Event{Msg: "node_enter"})
	if err := e.EmitBatch(nil, []Event{{Msg: "node_enter"}}); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	if err := e.Flush(nil); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
}
