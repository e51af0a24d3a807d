package repoargs

type RepositoryName string

const (
	BalanceRepoName     RepositoryName = "balance"
	TransactionRepoName RepositoryName = "transaction"
	OrderRepoName       RepositoryName = "order"
)
