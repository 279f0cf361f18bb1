package ext

// RemoteStatus 由其他工具维护的 Postgres 类型
type RemoteStatus struct{}

func (RemoteStatus) PgTypeName() string { return "remote_status" }
