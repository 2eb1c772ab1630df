package ynab

// Wire types of the YNAB v1 API (https://api.ynab.com/v1).

type transactionsPayload struct {
	Transactions []saveTransaction `json:"transactions"`
}

type saveTransaction struct {
	AccountID string  `json:"account_id"`
	Date      string  `json:"date"`
	Amount    int64   `json:"amount"`
	PayeeName *string `json:"payee_name,omitempty"`
	Memo      *string `json:"memo,omitempty"`
	Cleared   string  `json:"cleared"`
	ImportID  string  `json:"import_id"`
}

type transactionDetail struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Amount    int64   `json:"amount"`
	Memo      *string `json:"memo"`
	Cleared   string  `json:"cleared"`
	AccountID string  `json:"account_id"`
	PayeeName *string `json:"payee_name"`
	ImportID  *string `json:"import_id"`
	Deleted   bool    `json:"deleted"`
}

type saveTransactionsResponse struct {
	Data struct {
		TransactionIDs     []string            `json:"transaction_ids"`
		Transactions       []transactionDetail `json:"transactions"`
		DuplicateImportIDs []string            `json:"duplicate_import_ids"`
	} `json:"data"`
}

type transactionsResponse struct {
	Data struct {
		Transactions []transactionDetail `json:"transactions"`
	} `json:"data"`
}

type budgetSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type budgetsResponse struct {
	Data struct {
		Budgets []budgetSummary `json:"budgets"`
	} `json:"data"`
}

type accountDetail struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	Deleted bool   `json:"deleted"`
}

type accountsResponse struct {
	Data struct {
		Accounts []accountDetail `json:"accounts"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}
