package dao

import "context"

// StoreDAO 远程层级JSON存储访问接口。
// 路径由若干段拼接而成，段内不允许出现斜杠。
type StoreDAO interface {
	// Get 读取节点，shallow为真时只取子键名不取子树
	Get(ctx context.Context, shallow bool, segments ...string) (status int, body []byte, err error)
	// Put 整体覆盖节点
	Put(ctx context.Context, value interface{}, segments ...string) (status int, err error)
	// Merge 部分更新节点，缺席字段不动，null字段删除
	Merge(ctx context.Context, value interface{}, segments ...string) (status int, err error)
	// Delete 删除节点及其子树
	Delete(ctx context.Context, segments ...string) (status int, err error)

	// SendMessage 合并写入消息，message为nil时删除节点；出错只记日志并返回false
	SendMessage(ctx context.Context, message interface{}, segments ...string) bool
	// PutMessage 覆盖写入消息，message为nil时删除节点；出错只记日志并返回false
	PutMessage(ctx context.Context, message interface{}, segments ...string) bool
	// SendUpdate 将当前UTC时间戳写到末段字段上
	SendUpdate(ctx context.Context, segments ...string) bool
}
