// internal/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/dealwire/locks" // 所有分布式锁的根节点

// ErrLockBusy 表示锁当前被其他实例持有（仅 TryLock 返回）。
var ErrLockBusy = errors.New("lock is held by another instance")

// CycleLock 是基于临时顺序节点的分布式锁。
// 发布 worker 用它保证同一时刻只有一个副本在跑发布周期，
// 避免两个定时触发重叠时重复处理同一批任务。
type CycleLock struct {
	conn     *Conn
	path     string // 锁目录，例如 /dealwire/locks/publish-cycle
	lockNode string // 成功抢到锁后自己创建的节点
}

// NewCycleLock 创建一个锁实例并确保锁目录存在。
func NewCycleLock(conn *Conn, resourceID string) (*CycleLock, error) {
	if err := conn.EnsurePath(lockRoot); err != nil {
		return nil, fmt.Errorf("failed to ensure lock root: %w", err)
	}
	lockPath := lockRoot + "/" + resourceID
	if err := conn.EnsurePath(lockPath); err != nil {
		return nil, fmt.Errorf("failed to ensure lock path %s: %w", lockPath, err)
	}
	return &CycleLock{conn: conn, path: lockPath}, nil
}

// TryLock 尝试获取锁：创建顺序节点后，若自己不是最小节点则立即放弃。
// 周期性任务没必要排队等锁——这一轮抢不到，下一轮 tick 再来。
func (l *CycleLock) TryLock() error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}

	children, _, err := l.conn.Children(l.path)
	if err != nil {
		l.conn.Delete(nodePath, -1)
		return fmt.Errorf("failed to list lock children: %w", err)
	}
	sort.Strings(children)

	myNodeName := nodePath[strings.LastIndex(nodePath, "/")+1:]
	if len(children) > 0 && myNodeName != children[0] {
		l.conn.Delete(nodePath, -1)
		return ErrLockBusy
	}

	l.lockNode = nodePath
	return nil
}

// Lock 阻塞式获取锁，监听前一个节点的删除事件。
func (l *CycleLock) Lock(timeout time.Duration) error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	deadline := time.Now().Add(timeout)

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to list lock children: %w", err)
		}
		sort.Strings(children)

		myNodeName := nodePath[strings.LastIndex(nodePath, "/")+1:]
		if myNodeName == children[0] {
			return nil
		}

		// 找到排在自己前面的节点并监听它
		prevIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevIndex = i - 1
				break
			}
		}
		if prevIndex < 0 {
			return errors.New("own lock node missing from children")
		}
		prevNodePath := l.path + "/" + children[prevIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-time.After(time.Until(deadline)):
			l.Unlock()
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁。
func (l *CycleLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}
