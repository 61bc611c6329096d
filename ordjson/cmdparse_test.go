package ordjson

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestCmdMarshalRoundTrip ensures the estimator commands marshal to the
// expected JSON-RPC requests and unmarshal back into equivalent commands.
func TestCmdMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		cmd        interface{}
		marshalled string
	}{
		{
			name:       "estimaterate",
			cmd:        NewEstimateRateCmd(60),
			marshalled: `{"jsonrpc":"1.0","method":"estimaterate","params":[60],"id":1}`,
		},
		{
			name: "estimatefee",
			cmd: NewEstimateFeeCmd(20, "default", []FeeOutput{
				{Recipient: "oc1qtest", Amount: 5, Memo: "test"},
			}),
			marshalled: `{"jsonrpc":"1.0","method":"estimatefee","params":[20,"default",[{"recipient":"oc1qtest","amount":5,"memo":"test"}]],"id":1}`,
		},
		{
			name:       "getfeewindow",
			cmd:        NewGetFeeWindowCmd(),
			marshalled: `{"jsonrpc":"1.0","method":"getfeewindow","params":[],"id":1}`,
		},
		{
			name:       "getblockhash",
			cmd:        NewGetBlockHashCmd(42),
			marshalled: `{"jsonrpc":"1.0","method":"getblockhash","params":[42],"id":1}`,
		},
		{
			name:       "getbestheight",
			cmd:        NewGetBestHeightCmd(),
			marshalled: `{"jsonrpc":"1.0","method":"getbestheight","params":[],"id":1}`,
		},
		{
			name:       "sendrawtransaction",
			cmd:        NewSendRawTransactionCmd("0100", 2500),
			marshalled: `{"jsonrpc":"1.0","method":"sendrawtransaction","params":["0100",2500],"id":1}`,
		},
	}

	for _, test := range tests {
		marshalled, err := MarshalCmd(1, test.cmd)
		if err != nil {
			t.Errorf("%s: MarshalCmd error: %v", test.name, err)
			continue
		}
		if string(marshalled) != test.marshalled {
			t.Errorf("%s: mismatched marshalled request\ngot:  %s\n"+
				"want: %s", test.name, marshalled,
				test.marshalled)
			continue
		}

		var request Request
		if err := json.Unmarshal(marshalled, &request); err != nil {
			t.Errorf("%s: request unmarshal error: %v", test.name,
				err)
			continue
		}
		cmd, err := UnmarshalCmd(&request)
		if err != nil {
			t.Errorf("%s: UnmarshalCmd error: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(cmd, test.cmd) {
			t.Errorf("%s: round trip mismatch: got %+v, want %+v",
				test.name, cmd, test.cmd)
		}
	}
}

// TestUnmarshalCmdErrors ensures malformed requests produce the expected
// errors.
func TestUnmarshalCmdErrors(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		code    ErrorCode
	}{
		{
			name: "unregistered method",
			request: Request{
				Method: "estimatemoonphase",
			},
			code: ErrUnregisteredMethod,
		},
		{
			name: "too few params",
			request: Request{
				Method: "estimatefee",
				Params: []json.RawMessage{[]byte(`60`)},
			},
			code: ErrNumParams,
		},
		{
			name: "wrong param type",
			request: Request{
				Method: "estimaterate",
				Params: []json.RawMessage{[]byte(`"soon"`)},
			},
			code: ErrInvalidType,
		},
	}

	for _, test := range tests {
		_, err := UnmarshalCmd(&test.request)
		jerr, ok := err.(Error)
		if !ok {
			t.Errorf("%s: got %T, want ordjson.Error", test.name, err)
			continue
		}
		if jerr.ErrorCode != test.code {
			t.Errorf("%s: got %v, want %v", test.name,
				jerr.ErrorCode, test.code)
		}
	}
}

// TestMethodUsageFlags ensures notification commands carry the websocket
// flags.
func TestMethodUsageFlags(t *testing.T) {
	flags, err := MethodUsageFlags(BlockConnectedNtfnMethod)
	if err != nil {
		t.Fatalf("MethodUsageFlags: %v", err)
	}
	if flags&UFWebsocketOnly == 0 || flags&UFNotification == 0 {
		t.Fatalf("blockconnected flags: got %v, want websocket "+
			"notification", flags)
	}

	flags, err = MethodUsageFlags("estimaterate")
	if err != nil {
		t.Fatalf("MethodUsageFlags: %v", err)
	}
	if flags != 0 {
		t.Fatalf("estimaterate flags: got %v, want 0", flags)
	}
}
