package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/egp-tools/egp-rewriter/internal/mapping"
)

var testRules = mapping.Rules{
	{SourceSchema: "WORK", TargetSchema: "bronze", SourceTable: "ORDERS", TargetTable: "orders"},
	{SourceSchema: "WORK", TargetSchema: "bronze"},
	{SourceSchema: "DW_ENCPT", TargetSchema: "silver"},
}

func TestRewriteDoc_SQLTags(t *testing.T) {
	doc := `<Project><TaskCode>proc sql;
create table WORK.SUMMARY as select * from WORK.ORDERS;
quit;</TaskCode><TaskCode>data _null_; run;</TaskCode></Project>`

	got, total, tags := RewriteDoc(doc, testRules)

	want := `<Project><TaskCode>proc sql;
create table bronze.SUMMARY as select * from bronze.orders;
quit;</TaskCode><TaskCode>data _null_; run;</TaskCode></Project>`
	assert.Equal(t, want, got)
	assert.Equal(t, 2, total)

	assert.Equal(t, TagStats{Scanned: 2, Rewritten: 2}, tags["TaskCode"])
	assert.Equal(t, TagStats{Scanned: 0, Rewritten: 0}, tags["Text"])
}

func TestRewriteDoc_DottedRefTags(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		want  string
		total int
	}{
		{
			name:  "ExactShape",
			doc:   `<Label>WORK.ORDERS</Label>`,
			want:  `<Label>bronze.orders</Label>`,
			total: 1,
		},
		{
			name: "SurroundingWhitespaceTrimmed",
			doc:  `<Label>  WORK.ORDERS  </Label>`,
			want: `<Label>bronze.orders</Label>`,

			total: 1,
		},
		{
			name:  "NotAReferenceUntouched",
			doc:   `<Label>not a ref</Label>`,
			want:  `<Label>not a ref</Label>`,
			total: 0,
		},
		{
			name:  "ExtraCharactersUntouched",
			doc:   `<Label>see WORK.ORDERS here</Label>`,
			want:  `<Label>see WORK.ORDERS here</Label>`,
			total: 0,
		},
		{
			name:  "UnmappedReferenceUntouched",
			doc:   `<InputTableName>SASHELP.CLASS</InputTableName>`,
			want:  `<InputTableName>SASHELP.CLASS</InputTableName>`,
			total: 0,
		},
		{
			name:  "InputTableName",
			doc:   `<InputTableName>WORK.QUERY_X</InputTableName>`,
			want:  `<InputTableName>bronze.QUERY_X</InputTableName>`,
			total: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, _ := RewriteDoc(tt.doc, testRules)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestRewriteDoc_SchemaTags(t *testing.T) {
	doc := `<LibraryName>WORK</LibraryName><LibraryName>SASHELP</LibraryName><LibraryName> dw_encpt </LibraryName>`

	got, total, tags := RewriteDoc(doc, testRules)

	want := `<LibraryName>bronze</LibraryName><LibraryName>SASHELP</LibraryName><LibraryName>silver</LibraryName>`
	assert.Equal(t, want, got)
	assert.Equal(t, 2, total)
	assert.Equal(t, TagStats{Scanned: 3, Rewritten: 2}, tags["LibraryName"])
}

func TestRewriteDoc_SchemaTagIgnoresTableScope(t *testing.T) {
	// A table-scoped rule still renames a bare library name: schema-only
	// matching skips the table constraint, unlike the SQL and dotted
	// paths. Kept deliberately, see DESIGN.md.
	rules := mapping.Rules{
		{SourceSchema: "WORK", TargetSchema: "bronze", SourceTable: "ORDERS", TargetTable: "orders"},
	}

	got, total, _ := RewriteDoc(`<LibraryName>WORK</LibraryName>`, rules)
	assert.Equal(t, `<LibraryName>bronze</LibraryName>`, got)
	assert.Equal(t, 1, total)
}

func TestRewriteDoc_EmptyRules(t *testing.T) {
	doc := `<TaskCode>select * from WORK.ORDERS</TaskCode><Label>WORK.ORDERS</Label><LibraryName>WORK</LibraryName>`

	got, total, tags := RewriteDoc(doc, mapping.Rules{})

	assert.Equal(t, doc, got)
	assert.Equal(t, 0, total)
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 0}, tags["TaskCode"])
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 0}, tags["Label"])
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 0}, tags["LibraryName"])
}

func TestRewriteDoc_AllClassesTogether(t *testing.T) {
	doc := `<Element>
<TaskCode>create table WORK.SUMMARY as select * from [WORK].[ORDERS];</TaskCode>
<Label>WORK.ORDERS</Label>
<InputTableName>DW_ENCPT.POLICY</InputTableName>
<LibraryName>WORK</LibraryName>
</Element>`

	got, total, tags := RewriteDoc(doc, testRules)

	want := `<Element>
<TaskCode>create table bronze.SUMMARY as select * from [bronze].[orders];</TaskCode>
<Label>bronze.orders</Label>
<InputTableName>silver.POLICY</InputTableName>
<LibraryName>bronze</LibraryName>
</Element>`
	assert.Equal(t, want, got)
	assert.Equal(t, 5, total)

	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 2}, tags["TaskCode"])
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 1}, tags["Label"])
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 1}, tags["InputTableName"])
	assert.Equal(t, TagStats{Scanned: 1, Rewritten: 1}, tags["LibraryName"])
}
