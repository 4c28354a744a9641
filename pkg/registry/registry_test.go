package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/registry"
	"github.com/chatloop/chatloop/pkg/script"
)

func noopHandler(next string) ports.Handler {
	return func(ctx context.Context, chatID, input string, convCtx domain.Context, sink ports.MessageSink) (string, domain.Context, error) {
		return next, domain.Context{}, nil
	}
}

func TestRegistry_RegisterResolve(t *testing.T) {
	r := registry.New()
	r.Register("start", noopHandler("done"))

	h, err := r.Resolve("start")
	require.NoError(t, err)

	next, _, err := h(context.Background(), "c", "", domain.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", next)
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := registry.New()
	r.Register("start", noopHandler("first"))
	r.Register("start", noopHandler("second"))

	h, err := r.Resolve("start")
	require.NoError(t, err)

	next, _, _ := h(context.Background(), "c", "", domain.Context{}, nil)
	assert.Equal(t, "second", next)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := registry.New()

	_, err := r.Resolve("nope")
	require.Error(t, err)

	var uerr *domain.UnknownStateError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "nope", uerr.StateID)
}

func TestRegistry_States(t *testing.T) {
	r := registry.New()
	r.Register("zeta", noopHandler(""))
	r.Register("alpha", noopHandler(""))

	assert.Equal(t, []string{"alpha", "zeta"}, r.States())
}

func TestRegistry_LoadJSON(t *testing.T) {
	r := registry.New()

	err := r.LoadJSON([]byte(`{
		"start": "function start(chat_id, user_input, context, sender)\n  return \"collect\", {greeted = true}\nend",
		"collect": "function collect(chat_id, user_input, context, sender)\n  return \"start\", {answer = user_input}\nend"
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"collect", "start"}, r.States())

	h, err := r.Resolve("start")
	require.NoError(t, err)
	next, newCtx, err := h(context.Background(), "c", "hi", domain.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "collect", next)
	assert.Equal(t, domain.Context{"greeted": true}, newCtx)
}

func TestRegistry_LoadJSONWithReference(t *testing.T) {
	r := registry.New()
	r.Compiler().Catalog().Register("handlers.echo", noopHandler("start"))

	err := r.LoadJSON([]byte(`{"start": "handlers.echo"}`))
	require.NoError(t, err)

	_, err = r.Resolve("start")
	assert.NoError(t, err)
}

func TestRegistry_LoadJSONAtomic(t *testing.T) {
	r := registry.New()
	r.Register("existing", noopHandler(""))

	// "a_good" sorts before "b_bad", so it compiles cleanly first; the load
	// must still commit nothing.
	err := r.LoadJSON([]byte(`{
		"a_good": "function good(chat_id, user_input, context, sender)\n  return \"x\", {}\nend",
		"b_bad": "function bad(chat_id, user_input, context, sender)\n  os.execute(\"ls\")\n  return \"x\", {}\nend"
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "b_bad"`)

	var verr *script.ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.Equal(t, []string{"existing"}, r.States())
}

func TestRegistry_LoadJSONUnresolvedReference(t *testing.T) {
	r := registry.New()

	err := r.LoadJSON([]byte(`{"start": "handlers.missing"}`))
	require.Error(t, err)

	var rerr *script.ResolutionError
	assert.True(t, errors.As(err, &rerr))
}

func TestRegistry_LoadJSONMalformed(t *testing.T) {
	r := registry.New()

	assert.Error(t, r.LoadJSON([]byte(`{not json`)))
	assert.Error(t, r.LoadJSON([]byte(`{"start": 42}`)))
	assert.Empty(t, r.States())
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.json")
	doc := `{"start": "function start(chat_id, user_input, context, sender)\n  return \"start\", {}\nend"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r := registry.New()
	require.NoError(t, r.LoadFile(path))
	assert.Equal(t, []string{"start"}, r.States())
}

func TestRegistry_LoadFileMissing(t *testing.T) {
	r := registry.New()
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "absent.json")))
}
