package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsplit/internal/model"
)

func mailing() *model.Table {
	t := model.NewTable("CONTRATO", "RESP", model.ColSegment)
	t.Append("1", "AGENT_A", "FLEET_OWNER")
	t.Append("2.0", "AGENT_B", "INDEPENDENT")
	t.Append("ab-3", "AGENT_A", "INDEPENDENT")
	return t
}

func opts() Options {
	return Options{
		AccountKey:     "CONTRATO",
		AccountOwner:   "RESP",
		AccountSegment: model.ColSegment,
		ContactKey:     "ID",
	}
}

func TestSync_ProjectsOwnerAndSegment(t *testing.T) {
	contacts := model.NewTable("ID", "CEL")
	contacts.Append("1.0", "11987654321")
	contacts.Append("2", "")
	contacts.Append("AB3", "")

	res, err := Sync(mailing(), contacts, opts())
	require.NoError(t, err)

	assert.Equal(t, []string{"AGENT_A", "AGENT_B", "AGENT_A"}, res.Table.Column(model.ColOwnerFinal))
	assert.Equal(t, []string{"FLEET_OWNER", "INDEPENDENT", "INDEPENDENT"}, res.Table.Column(model.ColSegment))
	assert.Equal(t, 3, res.Matched)
	assert.InDelta(t, 1.0, res.MatchRate, 0.0001)
	assert.Nil(t, res.Warning)
	assert.False(t, contacts.Has(model.ColOwnerFinal), "input must not be modified")
}

func TestSync_Unmatched(t *testing.T) {
	contacts := model.NewTable("ID")
	contacts.Append("1")
	contacts.Append("999")
	contacts.Append("")

	res, err := Sync(mailing(), contacts, opts())
	require.NoError(t, err)

	assert.Equal(t, []string{"AGENT_A", model.Unmatched, model.Unmatched}, res.Table.Column(model.ColOwnerFinal))
	assert.Equal(t, "INDEPENDENT", res.Table.Get(1, model.ColSegment))
	assert.Equal(t, 2, res.Unmatched)
	assert.Equal(t, 1, res.MatchedAccountKeys)
	assert.InDelta(t, 1.0/3.0, res.MatchRate, 0.0001)
	require.NotNil(t, res.Warning)
	assert.Equal(t, model.WarnLowMatchRate, res.Warning.Code)
}

func TestSync_FallbackToContactOwner(t *testing.T) {
	contacts := model.NewTable("ID", "DONO")
	contacts.Append("999", "AGENT_Z")
	contacts.Append("998", "")

	o := opts()
	o.ContactOwner = "DONO"
	res, err := Sync(mailing(), contacts, o)
	require.NoError(t, err)

	assert.Equal(t, []string{"AGENT_Z", model.Unmatched}, res.Table.Column(model.ColOwnerFinal))
}

func TestSync_DuplicateContactKeysCountOnce(t *testing.T) {
	contacts := model.NewTable("ID")
	contacts.Append("1")
	contacts.Append("1")
	contacts.Append("2")

	o := opts()
	o.MatchRateThreshold = 0.5
	res, err := Sync(mailing(), contacts, o)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.MatchedAccountKeys)
	assert.InDelta(t, 2.0/3.0, res.MatchRate, 0.0001)
	assert.Nil(t, res.Warning)
}

func TestSync_FirstAccountWins(t *testing.T) {
	accounts := mailing()
	accounts.Append("1", "AGENT_C", "INDEPENDENT")
	contacts := model.NewTable("ID")
	contacts.Append("1")

	res, err := Sync(accounts, contacts, opts())
	require.NoError(t, err)
	assert.Equal(t, "AGENT_A", res.Table.Get(0, model.ColOwnerFinal))
}

func TestSync_MissingColumn(t *testing.T) {
	contacts := model.NewTable("KEY")
	_, err := Sync(mailing(), contacts, opts())
	assert.ErrorIs(t, err, model.ErrMissingColumn)

	o := opts()
	o.AccountSegment = "SEG"
	_, err = Sync(mailing(), model.NewTable("ID"), o)
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}

func TestSync_EmptyAccounts(t *testing.T) {
	accounts := model.NewTable("CONTRATO", "RESP", model.ColSegment)
	contacts := model.NewTable("ID")
	contacts.Append("1")

	res, err := Sync(accounts, contacts, opts())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.MatchRate)
	assert.Equal(t, 1, res.Unmatched)
}
