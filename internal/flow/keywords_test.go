package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evoflow/backend/internal/flow"
	"github.com/evoflow/backend/internal/model"
)

func TestKeywordsCollectsTriggerNodes(t *testing.T) {
	f := &model.Flow{
		Nodes: []model.FlowNode{
			{ID: "t1", Kind: model.NodeTrigger, Keywords: "Hi, hello , PRICE"},
			{ID: "m1", Kind: model.NodeMessage, Text: "ignored"},
			{ID: "t2", Kind: model.NodeTrigger, Keywords: "help,,  "},
		},
	}

	assert.Equal(t, []string{"hi", "hello", "price", "help"}, flow.Keywords(f))
}

func TestMatchesKeyword(t *testing.T) {
	keywords := []string{"hi", "price"}

	assert.True(t, flow.MatchesKeyword("HI there", keywords))
	assert.True(t, flow.MatchesKeyword("what is the Price?", keywords))
	assert.False(t, flow.MatchesKeyword("good morning", keywords))
	assert.False(t, flow.MatchesKeyword("", keywords))
}
