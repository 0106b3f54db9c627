// Package memory 进程内仓储实现，只供测试使用
//
// 与mysql包实现同一组领域接口：库存记录和中心投影按版本号条件写回，
// 失败事件按状态条件写回，事件台账event_id唯一。
// 应用层和接口层的单元测试用它替代MySQL，并发用例同样会触发版本冲突。
// 生产装配(cmd/api、cmd/central)只使用mysql包。
package memory
