package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/storage"
)

// encTLM3Payload is a captured TLM3 payload (after the dash separator).
var encTLM3Payload = []byte{
	100, 88, 85, 144, 68, 64, 49, 50, 71, 141, 82, 67, 144, 82, 81, 83, 91, 146, 91, 65,
	98, 60, 59, 45, 67, 54, 107, 135, 59, 74, 111, 56, 60, 50, 91, 30, 76, 135, 148, 29,
	43, 47, 55, 77, 84, 133, 128, 71, 78, 189, 55, 56, 73, 30, 100, 88, 85, 144, 70, 54,
	51, 91, 69, 27, 89, 67, 144, 82, 81, 83, 89, 147, 70, 33, 110, 63, 58, 86, 46, 41, 111,
	142, 71, 33, 99, 59, 60, 90, 22, 141, 82, 27, 78, 141, 80, 80, 87, 93, 22, 90, 95, 22,
	75, 68, 95, 138, 22, 90, 53, 85, 84, 145, 82, 134, 134, 128, 137, 29, 90, 85, 83, 135,
	146, 144, 86, 80, 138, 25, 68, 25, 128, 54, 47, 51, 94, 144, 104,
}

const decTLM3Payload = "000002DF/-;00000022/BOOT/SESS/OLNG/vlng=INT&tlng=INT," +
	"000002DF/-;00000023/ONLN/BLAZ/DCON/berr=-2146631680&fsta=11&tsta=3&sess=pcwdjtOCVpD\x00"

func TestXorCipher(t *testing.T) {
	t.Parallel()

	// The cipher is its own inverse for bytes below 0x80.
	testData := []byte("123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~")
	encData := xorCipher(testData, tlm3Key)
	decData := xorCipher(encData, tlm3Key)
	assert.Equal(t, testData, decData)
}

func TestXorCipherKnownData(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte(decTLM3Payload), xorCipher(encTLM3Payload, tlm3Key))
}

func TestDecipherTLM3(t *testing.T) {
	t.Parallel()

	value := append([]byte("@8a-"), encTLM3Payload...)
	assert.Equal(t, decTLM3Payload, decipherTLM3(value))
}

func TestReadMessage(t *testing.T) {
	t.Parallel()

	body := []byte("AUTH=anonymous\nTLM3=@8a-")
	body = append(body, encTLM3Payload...)

	var buf bytes.Buffer
	header := make([]byte, messageHeaderSize)
	binary.BigEndian.PutUint16(header[10:12], uint16(messageHeaderSize+len(body)))
	buf.Write(header)
	buf.Write(body)

	message, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Len(t, message.Values, 2)
	assert.Equal(t, [2]string{"AUTH", "anonymous"}, message.Values[0])
	assert.Equal(t, [2]string{"TLM3", decTLM3Payload}, message.Values[1])
}

type testInstance struct {
	config  *config.Config
	storage storage.Storage
	target  *lookup.Target
}

func (i *testInstance) Config() *config.Config   { return i.config }
func (i *testInstance) Storage() storage.Storage { return i.storage }
func (i *testInstance) Lookup() *lookup.Target   { return i.target }
func (i *testInstance) HTTPClient() *http.Client { return &http.Client{} }

func TestForward(t *testing.T) {
	t.Parallel()

	var received Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/server":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"version": "0.6.0",
				"ident":   "POCKET_RELAY_SERVER",
			})
		case "/api/server/telemetry":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	instance := &testInstance{
		config:  config.MakeTestConfig(config.Store{}),
		storage: storage.NewMemStorage(),
	}
	instance.target = lookup.New(instance)
	_, err := instance.target.Connect(context.Background(), server.URL, false)
	require.NoError(t, err)

	s := New(instance)
	err = mgr.New("test").Do("forward", func(w *mgr.WorkerCtx) error {
		return s.forward(w, &Message{Values: [][2]string{{"AUTH", "anonymous"}}})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"AUTH", "anonymous"}}, received.Values)
}
