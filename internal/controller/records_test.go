package controller_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glyphkey/kbcompanion/internal/bridge"
	"github.com/glyphkey/kbcompanion/internal/models"
)

func TestPrompts_SaveRejectsEmptyWithoutIO(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	if _, err := env.mgr.Prompts.Save(ctx, "  ", "text"); appStatus(t, err) != http.StatusBadRequest {
		t.Errorf("empty title: %v", err)
	}
	if _, err := env.mgr.Prompts.Save(ctx, "title", ""); appStatus(t, err) != http.StatusBadRequest {
		t.Errorf("empty text: %v", err)
	}
	if n := len(env.bridge.Calls()); n != 0 {
		t.Errorf("bridge calls = %d, want 0", n)
	}
}

func TestPrompts_Save(t *testing.T) {
	env := newTestManager(t)
	p, err := env.mgr.Prompts.Save(context.Background(), " Reply ", "Write a polite reply")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.ID == "" || p.Title != "Reply" {
		t.Errorf("prompt = %+v", p)
	}
	calls := env.bridge.CallsTo(bridge.MethodSavePrompt)
	if len(calls) != 1 {
		t.Fatalf("savePrompt calls = %d, want 1", len(calls))
	}
	if calls[0].Args["prompt"] != "Write a polite reply" || calls[0].Args["id"] != p.ID {
		t.Errorf("savePrompt args = %v", calls[0].Args)
	}
}

func TestPrompts_FallsBackToLegacyMethods(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	notImpl := &bridge.CallError{Code: bridge.CodeNotImplemented, Message: "no handler"}
	env.bridge.Fail(bridge.PromptsChannel, bridge.MethodSavePrompt, notImpl)
	env.bridge.Fail(bridge.PromptsChannel, bridge.MethodDeletePrompt, notImpl)

	if _, err := env.mgr.Prompts.Save(ctx, "t", "x"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodAddPrompt)); n != 1 {
		t.Errorf("addPrompt calls = %d, want 1", n)
	}
	if err := env.mgr.Prompts.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodRemovePrompt)); n != 1 {
		t.Errorf("removePrompt calls = %d, want 1", n)
	}
}

func TestPrompts_NoFallbackOnOtherErrors(t *testing.T) {
	env := newTestManager(t)
	env.bridge.Fail(bridge.PromptsChannel, bridge.MethodSavePrompt, errors.New("disk full"))

	_, err := env.mgr.Prompts.Save(context.Background(), "t", "x")
	if appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("Save() = %v, want 502", err)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodAddPrompt)); n != 0 {
		t.Errorf("addPrompt calls = %d, want 0", n)
	}
}

func TestPrompts_List(t *testing.T) {
	env := newTestManager(t)
	env.bridge.Handle(bridge.PromptsChannel, bridge.MethodGetPrompts, func(map[string]any) (any, error) {
		return []any{
			map[string]any{"id": "a", "title": "Greet", "prompt": "Say hi"},
			map[string]any{"id": "b", "title": "Sum", "prompt": "Summarize"},
		}, nil
	})
	got, err := env.mgr.Prompts.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[1].Text != "Summarize" {
		t.Errorf("List() = %+v", got)
	}
}

func TestDictionary_AddListRemove(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	d := env.mgr.Dictionary

	if _, err := d.Add(ctx, models.DictionaryEntry{Word: "kubectl", Shortcut: "kc"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := d.Add(ctx, models.DictionaryEntry{Word: "golang"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := d.List()
	if len(got) != 2 || got[0].Word != "golang" || got[1].Shortcut != "kc" {
		t.Errorf("List() = %+v", got)
	}
	if got[0].Frequency != 250 {
		t.Errorf("default frequency = %d, want 250", got[0].Frequency)
	}
	if _, ok := env.store.Get("flutter.user_dictionary"); !ok {
		t.Error("dictionary blob missing under flutter. alias")
	}
	if n := len(env.bridge.CallsTo(bridge.MethodNotifyConfigChange)); n != 2 {
		t.Errorf("notifyConfigChange calls = %d, want 2", n)
	}

	if err := d.Remove(ctx, "KUBECTL", ""); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := d.List(); len(got) != 1 {
		t.Errorf("List() after remove = %+v", got)
	}
	if err := d.Remove(ctx, "kubectl", ""); appStatus(t, err) != http.StatusNotFound {
		t.Errorf("second Remove() = %v, want 404", err)
	}

	if err := d.Remove(ctx, "golang", ""); err != nil {
		t.Fatalf("Remove(last): %v", err)
	}
	if _, ok := env.store.Get("flutter.user_dictionary"); ok {
		t.Error("dictionary blob kept after removing the last entry")
	}
}

func TestDictionary_RemoveByLanguage(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	d := env.mgr.Dictionary

	for _, lang := range []string{"en", "de", "fr"} {
		if _, err := d.Add(ctx, models.DictionaryEntry{Word: "Handy", Language: lang}); err != nil {
			t.Fatalf("Add(%s): %v", lang, err)
		}
	}

	if err := d.Remove(ctx, "handy", "de"); err != nil {
		t.Fatalf("Remove(de): %v", err)
	}
	var langs []string
	for _, e := range d.List() {
		langs = append(langs, e.Language)
	}
	sort.Strings(langs)
	if diff := cmp.Diff([]string{"en", "fr"}, langs); diff != "" {
		t.Errorf("languages after remove mismatch (-want +got):\n%s", diff)
	}
	if err := d.Remove(ctx, "handy", "de"); appStatus(t, err) != http.StatusNotFound {
		t.Errorf("second Remove(de) = %v, want 404", err)
	}

	if err := d.Remove(ctx, "HANDY", ""); err != nil {
		t.Fatalf("Remove(all): %v", err)
	}
	if got := d.List(); len(got) != 0 {
		t.Errorf("List() after removing all languages = %+v", got)
	}
}

func TestDictionary_Validation(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	d := env.mgr.Dictionary

	if _, err := d.Add(ctx, models.DictionaryEntry{Word: " "}); appStatus(t, err) != http.StatusBadRequest {
		t.Errorf("empty word: %v", err)
	}
	if _, err := d.Add(ctx, models.DictionaryEntry{Word: "two words"}); appStatus(t, err) != http.StatusBadRequest {
		t.Errorf("spaces: %v", err)
	}
	if n := len(env.bridge.Calls()); n != 0 {
		t.Errorf("bridge calls = %d, want 0", n)
	}
	_, _ = d.Add(ctx, models.DictionaryEntry{Word: "Gopher"})
	if _, err := d.Add(ctx, models.DictionaryEntry{Word: "gopher"}); appStatus(t, err) != http.StatusConflict {
		t.Errorf("duplicate: %v", err)
	}
}

func TestDictionary_AddSurvivesSignalFailure(t *testing.T) {
	env := newTestManager(t)
	env.bridge.FailAll(errors.New("offline"))
	if _, err := env.mgr.Dictionary.Add(context.Background(), models.DictionaryEntry{Word: "offline"}); err != nil {
		t.Fatalf("Add() = %v, want stored despite failed signal", err)
	}
	if got := env.mgr.Dictionary.List(); len(got) != 1 {
		t.Errorf("List() = %+v", got)
	}
}

func TestDictionary_ClearLearned(t *testing.T) {
	env := newTestManager(t)
	if err := env.mgr.Dictionary.ClearLearned(context.Background()); err != nil {
		t.Fatalf("ClearLearned: %v", err)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodClearLearnedWords)); n != 1 {
		t.Errorf("clearLearnedWords calls = %d", n)
	}
	env.bridge.Fail(bridge.ConfigChannel, bridge.MethodClearLearnedWords, errors.New("busy"))
	if err := env.mgr.Dictionary.ClearLearned(context.Background()); appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("ClearLearned() = %v, want 502", err)
	}
}

func historyHandler(items ...map[string]any) bridge.Handler {
	return func(map[string]any) (any, error) {
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it
		}
		return out, nil
	}
}

func TestClipboard_HistoryCachesAndFallsBack(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	env.bridge.Handle(bridge.ClipboardChannel, bridge.MethodGetHistory, historyHandler(
		map[string]any{"id": "1", "text": "hello", "pinned": false},
		map[string]any{"id": "2", "text": "world", "pinned": true},
	))

	items, cached, err := env.mgr.Clipboard.History(ctx)
	if err != nil || cached || len(items) != 2 {
		t.Fatalf("History() = %+v, %v, %v", items, cached, err)
	}

	env.bridge.Fail(bridge.ClipboardChannel, bridge.MethodGetHistory, errors.New("gone"))
	items, cached, err = env.mgr.Clipboard.History(ctx)
	if err != nil || !cached || len(items) != 2 {
		t.Errorf("History() offline = %+v, %v, %v; want cached copy", items, cached, err)
	}
}

func TestClipboard_HistoryNoCache(t *testing.T) {
	env := newTestManager(t)
	env.bridge.Fail(bridge.ClipboardChannel, bridge.MethodGetHistory, errors.New("gone"))
	if _, _, err := env.mgr.Clipboard.History(context.Background()); appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("History() = %v, want 502", err)
	}
}

func TestClipboard_PinAndDeleteUpdateCache(t *testing.T) {
	env := newTestManager(t)
	ctx := context.Background()
	env.bridge.Handle(bridge.ClipboardChannel, bridge.MethodGetHistory, historyHandler(
		map[string]any{"id": "1", "text": "a"},
		map[string]any{"id": "2", "text": "b"},
	))
	if _, _, err := env.mgr.Clipboard.History(ctx); err != nil {
		t.Fatalf("History: %v", err)
	}

	if err := env.mgr.Clipboard.Pin(ctx, "1", true); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if err := env.mgr.Clipboard.Delete(ctx, "2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := env.mgr.Clipboard.Pin(ctx, "", true); appStatus(t, err) != http.StatusBadRequest {
		t.Errorf("Pin(empty) = %v, want 400", err)
	}

	env.bridge.FailAll(errors.New("gone"))
	items, cached, err := env.mgr.Clipboard.History(ctx)
	if err != nil || !cached {
		t.Fatalf("History() = %v, %v", cached, err)
	}
	if len(items) != 1 || items[0].ID != "1" || !items[0].Pinned {
		t.Errorf("cached items = %+v", items)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodPinItem)); n != 1 {
		t.Errorf("pinItem calls = %d", n)
	}
}

func TestClipboard_Sync(t *testing.T) {
	env := newTestManager(t)
	env.bridge.Handle(bridge.ClipboardChannel, bridge.MethodGetHistory, historyHandler(
		map[string]any{"id": "9", "text": "synced"},
	))
	items, err := env.mgr.Clipboard.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(items) != 1 || items[0].Text != "synced" {
		t.Errorf("Sync() = %+v", items)
	}
	if n := len(env.bridge.CallsTo(bridge.MethodSyncClipboard)); n != 1 {
		t.Errorf("syncClipboard calls = %d", n)
	}
}

func TestStatus_Check(t *testing.T) {
	env := newTestManager(t)
	env.bridge.Handle(bridge.ConfigChannel, bridge.MethodIsKeyboardEnabled, func(map[string]any) (any, error) { return true, nil })
	env.bridge.Handle(bridge.ConfigChannel, bridge.MethodIsKeyboardActive, func(map[string]any) (any, error) { return false, nil })

	st, err := env.mgr.Status.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !st.Enabled || st.Active || st.CheckedAt.IsZero() {
		t.Errorf("status = %+v", st)
	}

	env.bridge.Handle(bridge.ConfigChannel, bridge.MethodIsKeyboardActive, func(map[string]any) (any, error) { return "yes", nil })
	if _, err := env.mgr.Status.Check(context.Background()); appStatus(t, err) != http.StatusBadGateway {
		t.Errorf("Check() with bad result = %v, want 502", err)
	}
}
