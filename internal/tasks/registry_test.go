package tasks

import "testing"

func TestGetUnknownKind(t *testing.T) {
	t.Parallel()

	if Get("reboot-the-moon") != nil {
		t.Error("unknown kind should not resolve")
	}
	if Get("") != nil {
		t.Error("empty kind should not resolve")
	}
}

func TestValidateInputsRequiresPrompt(t *testing.T) {
	t.Parallel()

	kind := Get(KindRunCodingAgent)
	if kind == nil {
		t.Fatal("run-coding-agent should be registered")
	}

	if _, err := kind.ValidateInputs(map[string]string{}); err == nil {
		t.Error("missing prompt should be rejected")
	}
	if _, err := kind.ValidateInputs(nil); err == nil {
		t.Error("nil inputs should be rejected")
	}
	if _, err := kind.ValidateInputs(map[string]string{"prompt": ""}); err == nil {
		t.Error("empty prompt should be rejected")
	}
	if _, err := kind.ValidateInputs(map[string]string{"prompt": "   \t"}); err == nil {
		t.Error("whitespace-only prompt should be rejected")
	}
}

func TestValidateInputsLeavesBaseBranchUnset(t *testing.T) {
	t.Parallel()

	kind := Get(KindRunCodingAgent)
	inputs := map[string]string{"prompt": "add a README"}

	resolved, err := kind.ValidateInputs(inputs)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	// base_branch resolution happens against the repository record, not here.
	if resolved["base_branch"] != "" {
		t.Errorf("base_branch should stay unset, got %q", resolved["base_branch"])
	}
	if resolved["prompt"] != "add a README" {
		t.Errorf("prompt should pass through, got %q", resolved["prompt"])
	}

	// Caller's map is untouched.
	if _, ok := inputs["base_branch"]; ok {
		t.Error("validation should not mutate the caller's map")
	}
}

func TestValidateInputsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	kind := Get(KindRunCodingAgent)
	resolved, err := kind.ValidateInputs(map[string]string{
		"prompt":      "fix the flaky test",
		"base_branch": "develop",
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resolved["base_branch"] != "develop" {
		t.Errorf("explicit base_branch should win, got %q", resolved["base_branch"])
	}
}
