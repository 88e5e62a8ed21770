package backup

import (
	"encoding/json"

	"sorpes/internal/core"
)

// Field names of documents written by the browser version of the app.
type (
	legacyOwner struct {
		ID   core.OwnerID `json:"id"`
		Nome string       `json:"nome"`
	}

	legacyExpense struct {
		Vencimento string       `json:"vencimento"`
		Descricao  string       `json:"descricao"`
		Tipo       string       `json:"tipo"`
		Valor      core.Money   `json:"valor"`
		Pago       bool         `json:"pago"`
		Usuario    core.OwnerID `json:"usuario"`
	}

	legacyIncome struct {
		Data    string       `json:"data"`
		Tipo    string       `json:"tipo"`
		Valor   core.Money   `json:"valor"`
		Usuario core.OwnerID `json:"usuario"`
	}

	legacyItem struct {
		Data      string       `json:"data"`
		Valor     core.Money   `json:"valor"`
		Descricao string       `json:"descricao"`
		Usuario   core.OwnerID `json:"usuario"`
	}

	legacyBlock struct {
		ID     string       `json:"id"`
		Titulo string       `json:"titulo"`
		Limite core.Money   `json:"limite"`
		Items  []legacyItem `json:"items"`
	}

	legacyMonth struct {
		GastosFixos     []legacyExpense `json:"gastosFixos"`
		GastosVariaveis []legacyExpense `json:"gastosVariaveis"`
		GastosMensais   []legacyBlock   `json:"gastosMensais"`
		Receitas        []legacyIncome  `json:"receitas"`
		GanhosFuturos   []legacyIncome  `json:"ganhosFuturos"`
	}
)

var singleMonthFields = []string{"gastosFixos", "receitas", "gastosMensais"}

func isSingleMonth(raw map[string]json.RawMessage) bool {
	for _, f := range singleMonthFields {
		if v, ok := raw[f]; ok && isJSONArray(v) {
			return true
		}
	}
	return false
}

func (e legacyExpense) toEntry() core.ExpenseEntry {
	return core.ExpenseEntry{
		DueDate:     e.Vencimento,
		Description: e.Descricao,
		Category:    e.Tipo,
		Amount:      e.Valor,
		Paid:        e.Pago,
		Owner:       e.Usuario,
	}
}

func (e legacyIncome) toEntry() core.IncomeEntry {
	return core.IncomeEntry{Date: e.Data, Category: e.Tipo, Amount: e.Valor, Owner: e.Usuario}
}

func (lm legacyMonth) toMonthData() *core.MonthData {
	md := core.EmptyMonthData()
	for _, e := range lm.GastosFixos {
		md.FixedExpenses = append(md.FixedExpenses, e.toEntry())
	}
	for _, e := range lm.GastosVariaveis {
		md.VariableExpenses = append(md.VariableExpenses, e.toEntry())
	}
	for _, b := range lm.GastosMensais {
		block := core.MonthlyBlock{ID: b.ID, Title: b.Titulo, Limit: b.Limite, Items: []core.BlockItem{}}
		for _, it := range b.Items {
			block.Items = append(block.Items, core.BlockItem{
				Date:        it.Data,
				Amount:      it.Valor,
				Description: it.Descricao,
				Owner:       it.Usuario,
			})
		}
		md.MonthlyBlocks = append(md.MonthlyBlocks, block)
	}
	for _, e := range lm.Receitas {
		md.Income = append(md.Income, e.toEntry())
	}
	for _, e := range lm.GanhosFuturos {
		md.FutureIncome = append(md.FutureIncome, e.toEntry())
	}
	return md
}
