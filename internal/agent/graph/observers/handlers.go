package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks returns the handlers attached to every pipeline run:
// typed prompt and model logging plus per-node timing.
func NewAllCallbacks() []einocb.Handler {
	typed := callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
	return []einocb.Handler{typed, NewStageCallbacks()}
}
