package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdaptorRegistration{
		Info: datasource.AdaptorInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server 2019+, Azure SQL Database (SQL authentication)",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adaptor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewQueryExecutor(ctx, cfg, logger)
		},
	})
}
